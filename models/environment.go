package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Environment struct {
	bun.BaseModel `bun:"table:environments,alias:e" bson:"-" json:"-" yaml:"-"`

	ID        int64     `bun:"id,pk,autoincrement" bson:"_id" json:"id" yaml:"id"`
	Name      string    `bun:"name,notnull" bson:"name" json:"name" yaml:"name"`
	BaseURL   string    `bun:"base_url" bson:"base_url" json:"base_url" yaml:"base_url,omitempty"`
	IsActive  bool      `bun:"is_active,notnull" bson:"is_active" json:"is_active" yaml:"is_active"`
	CreatedAt time.Time `bun:"created_at,notnull" bson:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt time.Time `bun:"updated_at,notnull" bson:"updated_at" json:"updated_at" yaml:"-"`

	Variables []Variable `bun:"-" bson:"-" json:"variables" yaml:"variables,omitempty"`
}

// VariableMap flattens the environment's variables; later keys win on duplicates.
func (e *Environment) VariableMap() map[string]string {
	out := make(map[string]string, len(e.Variables))
	for _, v := range e.Variables {
		out[v.Key] = v.Value
	}
	return out
}

type Variable struct {
	bun.BaseModel `bun:"table:variables,alias:v" bson:"-" json:"-" yaml:"-"`

	ID            int64  `bun:"id,pk,autoincrement" bson:"_id" json:"id" yaml:"-"`
	EnvironmentID int64  `bun:"environment_id,notnull" bson:"environment_id" json:"environment_id" yaml:"-"`
	Key           string `bun:"key,notnull" bson:"key" json:"key" yaml:"key"`
	Value         string `bun:"value" bson:"value" json:"value" yaml:"value"`
}
