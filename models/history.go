package models

import (
	"time"

	"github.com/uptrace/bun"
)

// History is an immutable snapshot of one executed request and the response it produced.
type History struct {
	bun.BaseModel `bun:"table:history,alias:h" bson:"-" json:"-"`

	ID              int64             `bun:"id,pk,autoincrement" bson:"_id" json:"id"`
	RequestID       *int64            `bun:"request_id" bson:"request_id" json:"request_id"`
	Method          string            `bun:"method,notnull" bson:"method" json:"method"`
	URL             string            `bun:"url,notnull" bson:"url" json:"url"`
	RequestHeaders  map[string]string `bun:"request_headers,type:jsonb" bson:"request_headers" json:"request_headers"`
	RequestBody     string            `bun:"request_body" bson:"request_body" json:"request_body"`
	StatusCode      int               `bun:"status_code,notnull" bson:"status_code" json:"status_code"`
	StatusText      string            `bun:"status_text" bson:"status_text" json:"status_text"`
	ResponseHeaders map[string]string `bun:"response_headers,type:jsonb" bson:"response_headers" json:"response_headers"`
	ResponseBody    string            `bun:"response_body" bson:"response_body" json:"response_body"`
	ResponseTimeMS  int64             `bun:"response_time_ms,notnull" bson:"response_time_ms" json:"response_time_ms"`
	ResponseSize    int64             `bun:"response_size,notnull" bson:"response_size" json:"response_size"`
	ExecutedAt      time.Time         `bun:"executed_at,notnull" bson:"executed_at" json:"executed_at"`
}
