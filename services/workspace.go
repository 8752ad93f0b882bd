package services

import (
	"context"
	"fmt"
	"time"

	"apiworkbench/models"
	"apiworkbench/store"
)

// ExportWorkspace reads the whole workspace in one transaction.
func ExportWorkspace(ctx context.Context, st store.Store) (*models.WorkspaceTree, error) {
	tree := &models.WorkspaceTree{ExportedAt: time.Now().UTC()}

	err := st.WithinTx(ctx, func(ctx context.Context, tx store.Store) error {
		folders, err := tx.Folders().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}
		requests, err := tx.Requests().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}
		tree.Folders = BuildFolderTree(folders, requests)

		tree.StandaloneRequests = []models.Request{}
		for _, r := range requests {
			if r.FolderID == nil {
				tree.StandaloneRequests = append(tree.StandaloneRequests, r)
			}
		}

		envs, err := tx.Environments().List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list environments: %w", err)
		}
		for i := range envs {
			if err := loadVariables(ctx, tx, &envs[i]); err != nil {
				return err
			}
		}
		if envs == nil {
			envs = []models.Environment{}
		}
		tree.Environments = envs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}
