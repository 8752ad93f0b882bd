package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"apiworkbench/models"
	"apiworkbench/store"
	"apiworkbench/utils"
)

type CreateFolderInput struct {
	Name           string `json:"name"`
	ParentFolderID *int64 `json:"parent_folder_id"`
}

func (in CreateFolderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, utils.NameRules...),
	)
}

// UpdateFolderInput renames and/or moves a folder. ParentFolderID is only
// applied when SetParent is true; a nil parent then moves the folder to the root.
type UpdateFolderInput struct {
	Name           *string
	SetParent      bool
	ParentFolderID *int64
}

func (in UpdateFolderInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.When(in.Name != nil, utils.NameRules...)),
	)
}

type FolderService struct {
	store  store.Store
	now    func() time.Time
	logger *slog.Logger
}

func NewFolderService(st store.Store, opts ...Option) *FolderService {
	cfg := newServiceConfig("folders", opts)
	return &FolderService{
		store:  st,
		now:    cfg.now,
		logger: cfg.logger,
	}
}

func (s *FolderService) ListFolders(ctx context.Context) ([]models.Folder, error) {
	folders, err := s.store.Folders().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

func (s *FolderService) GetFolder(ctx context.Context, id int64) (*models.Folder, error) {
	folder, err := s.store.Folders().Get(ctx, id)
	if err != nil {
		return nil, translate(err, "Folder", id)
	}
	return folder, nil
}

// GetTree reads every folder and foldered request and nests them.
func (s *FolderService) GetTree(ctx context.Context) ([]*models.FolderNode, error) {
	var tree []*models.FolderNode
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		folders, err := tx.Folders().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}
		requests, err := tx.Requests().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}
		tree = BuildFolderTree(folders, requests)
		return nil
	})
	return tree, err
}

// CreateFolder appends a folder after its existing siblings. The parent must
// exist and the new folder may not sit deeper than models.MaxNestingDepth.
func (s *FolderService) CreateFolder(ctx context.Context, in CreateFolderInput) (*models.Folder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created *models.Folder
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		folders := tx.Folders()

		if in.ParentFolderID != nil {
			if _, err := folders.Get(ctx, *in.ParentFolderID); err != nil {
				return translate(err, "Parent folder", *in.ParentFolderID)
			}
			parentDepth, err := FolderDepth(ctx, folders, *in.ParentFolderID)
			if err != nil {
				return err
			}
			if parentDepth+1 > models.MaxNestingDepth {
				return invalidOperation("Maximum nesting depth of %d exceeded", models.MaxNestingDepth)
			}
		}

		sortOrder := 0
		highest, ok, err := folders.MaxSortOrder(ctx, in.ParentFolderID)
		if err != nil {
			return fmt.Errorf("failed to read sibling order: %w", err)
		}
		if ok {
			sortOrder = highest + 1
		}

		now := s.now()
		folder := &models.Folder{
			Name:           in.Name,
			ParentFolderID: in.ParentFolderID,
			SortOrder:      sortOrder,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := folders.Create(ctx, folder); err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}
		created = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created", "folder_id", created.ID, "parent_folder_id", refValue(created.ParentFolderID))
	return created, nil
}

// UpdateFolder applies a rename and/or a move in one transaction. A move only
// rewrites the folder's own parent; descendants and requests keep theirs.
func (s *FolderService) UpdateFolder(ctx context.Context, id int64, in UpdateFolderInput) (*models.Folder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var updated *models.Folder
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		folders := tx.Folders()

		folder, err := folders.Get(ctx, id)
		if err != nil {
			return translate(err, "Folder", id)
		}

		if in.Name != nil {
			folder.Name = *in.Name
		}
		if in.SetParent {
			if err := s.validateMove(ctx, folders, id, in.ParentFolderID); err != nil {
				return err
			}
			folder.ParentFolderID = in.ParentFolderID
		}

		folder.UpdatedAt = s.now()
		if err := folders.Update(ctx, folder); err != nil {
			return translate(err, "Folder", id)
		}
		updated = folder
		return nil
	})
	if err != nil {
		return nil, err
	}

	if in.SetParent {
		s.logger.Info("folder moved", "folder_id", id, "parent_folder_id", refValue(updated.ParentFolderID))
	}
	return updated, nil
}

func (s *FolderService) RenameFolder(ctx context.Context, id int64, name string) (*models.Folder, error) {
	return s.UpdateFolder(ctx, id, UpdateFolderInput{Name: &name})
}

func (s *FolderService) MoveFolder(ctx context.Context, id int64, parentID *int64) (*models.Folder, error) {
	return s.UpdateFolder(ctx, id, UpdateFolderInput{SetParent: true, ParentFolderID: parentID})
}

func (s *FolderService) validateMove(ctx context.Context, folders store.FolderRepository, id int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return invalidOperation("A folder cannot be its own parent")
	}
	if _, err := folders.Get(ctx, *parentID); err != nil {
		return translate(err, "Parent folder", *parentID)
	}

	circular, err := DetectCircularReference(ctx, folders, id, *parentID)
	if err != nil {
		return err
	}
	if circular {
		return invalidOperation("Moving this folder would create a circular reference")
	}

	targetDepth, err := FolderDepth(ctx, folders, *parentID)
	if err != nil {
		return err
	}
	targetDepth++
	subtree, err := SubtreeDepth(ctx, folders, id)
	if err != nil {
		return err
	}
	if targetDepth+subtree-1 > models.MaxNestingDepth {
		return invalidOperation("Maximum nesting depth of %d exceeded", models.MaxNestingDepth)
	}
	return nil
}

// DeleteFolder removes the folder, every descendant folder and every request
// they own, atomically.
func (s *FolderService) DeleteFolder(ctx context.Context, id int64) error {
	var foldersDeleted, requestsDeleted int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.Folders().Get(ctx, id); err != nil {
			return translate(err, "Folder", id)
		}

		ids, err := collectSubtree(ctx, tx.Folders(), id)
		if err != nil {
			return err
		}

		if requestsDeleted, err = tx.Requests().DeleteByFolders(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete requests: %w", err)
		}
		if foldersDeleted, err = tx.Folders().DeleteMany(ctx, ids); err != nil {
			return fmt.Errorf("failed to delete folders: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("folder deleted", "folder_id", id, "folders", foldersDeleted, "requests", requestsDeleted)
	return nil
}

// collectSubtree returns id followed by all of its descendants, breadth first.
func collectSubtree(ctx context.Context, folders store.FolderRepository, id int64) ([]int64, error) {
	ids := []int64{id}
	seen := map[int64]bool{id: true}
	for i := 0; i < len(ids); i++ {
		parent := ids[i]
		children, err := folders.ListChildren(ctx, &parent)
		if err != nil {
			return nil, fmt.Errorf("failed to list children of folder %d: %w", parent, err)
		}
		for _, child := range children {
			if !seen[child.ID] {
				seen[child.ID] = true
				ids = append(ids, child.ID)
			}
		}
	}
	return ids, nil
}

// ReorderFolders sets each listed folder's sort_order to its position.
// Unknown ids are skipped.
func (s *FolderService) ReorderFolders(ctx context.Context, ids []int64) error {
	return s.store.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		now := s.now()
		for position, id := range ids {
			folder, err := tx.Folders().Get(ctx, id)
			if isStoreNotFound(err) {
				continue
			}
			if err != nil {
				return translate(err, "Folder", id)
			}
			folder.SortOrder = position
			folder.UpdatedAt = now
			if err := tx.Folders().Update(ctx, folder); err != nil {
				return fmt.Errorf("failed to reorder folder %d: %w", id, err)
			}
		}
		return nil
	})
}
