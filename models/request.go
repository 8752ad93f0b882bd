package models

import (
	"time"

	"github.com/uptrace/bun"
)

var HTTPMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// BodyType selects how a request body is serialized on the wire.
type BodyType string

const (
	BodyTypeNone BodyType = ""
	BodyTypeJSON BodyType = "json"
	BodyTypeForm BodyType = "form"
	BodyTypeRaw  BodyType = "raw"
)

func (b BodyType) Valid() bool {
	switch b {
	case BodyTypeNone, BodyTypeJSON, BodyTypeForm, BodyTypeRaw:
		return true
	}
	return false
}

type Request struct {
	bun.BaseModel `bun:"table:requests,alias:r" bson:"-" json:"-" yaml:"-"`

	ID          int64             `bun:"id,pk,autoincrement" bson:"_id" json:"id" yaml:"id"`
	Name        string            `bun:"name,notnull" bson:"name" json:"name" yaml:"name"`
	Method      string            `bun:"method,notnull" bson:"method" json:"method" yaml:"method"`
	URL         string            `bun:"url,notnull" bson:"url" json:"url" yaml:"url"`
	Headers     map[string]string `bun:"headers,type:jsonb" bson:"headers" json:"headers" yaml:"headers,omitempty"`
	QueryParams map[string]string `bun:"query_params,type:jsonb" bson:"query_params" json:"query_params" yaml:"query_params,omitempty"`
	BodyType    BodyType          `bun:"body_type" bson:"body_type" json:"body_type" yaml:"body_type,omitempty"`
	Body        string            `bun:"body" bson:"body" json:"body" yaml:"body,omitempty"`
	FolderID    *int64            `bun:"folder_id" bson:"folder_id" json:"folder_id" yaml:"folder_id,omitempty"`
	SortOrder   int               `bun:"sort_order,notnull" bson:"sort_order" json:"sort_order" yaml:"sort_order"`
	CreatedAt   time.Time         `bun:"created_at,notnull" bson:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt   time.Time         `bun:"updated_at,notnull" bson:"updated_at" json:"updated_at" yaml:"-"`
}
