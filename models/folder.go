package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MaxNestingDepth is the deepest level a folder may sit at; roots are depth 1.
const MaxNestingDepth = 5

type Folder struct {
	bun.BaseModel `bun:"table:folders,alias:f" bson:"-" json:"-" yaml:"-"`

	ID             int64     `bun:"id,pk,autoincrement" bson:"_id" json:"id" yaml:"id"`
	ParentFolderID *int64    `bun:"parent_folder_id" bson:"parent_folder_id" json:"parent_folder_id" yaml:"parent_folder_id,omitempty"`
	Name           string    `bun:"name,notnull" bson:"name" json:"name" yaml:"name"`
	SortOrder      int       `bun:"sort_order,notnull" bson:"sort_order" json:"sort_order" yaml:"sort_order"`
	CreatedAt      time.Time `bun:"created_at,notnull" bson:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt      time.Time `bun:"updated_at,notnull" bson:"updated_at" json:"updated_at" yaml:"-"`
}

// FolderNode is a folder materialized together with its subfolders and requests.
type FolderNode struct {
	Folder   `yaml:",inline"`
	Children []*FolderNode `json:"children" yaml:"children,omitempty"`
	Requests []Request     `json:"requests" yaml:"requests,omitempty"`
}

// WorkspaceTree is a full snapshot of the workspace: nested folders, requests
// without a folder and every environment.
type WorkspaceTree struct {
	ExportedAt         time.Time     `json:"exported_at" yaml:"exported_at"`
	Folders            []*FolderNode `json:"folders" yaml:"folders"`
	StandaloneRequests []Request     `json:"standalone_requests" yaml:"standalone_requests"`
	Environments       []Environment `json:"environments" yaml:"environments"`
}
