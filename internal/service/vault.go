package service

import (
	"context"
	"fmt"

	"github.com/cleberrangel/basecamp-dashboard/internal/logger"
	"github.com/cleberrangel/basecamp-dashboard/internal/model"
)

// maxVaultDepth bounds the folder recursion
const maxVaultDepth = 32

// BuildVaultTree fetches a vault, its files and its sub-vaults depth-first and
// assembles the tree bottom-up: a node is built only after all of its children.
func (a *Aggregator) BuildVaultTree(ctx context.Context, projectID, vaultID int64) (model.VaultNode, error) {
	node, err := a.buildVaultNode(ctx, projectID, vaultID, 0)
	if err != nil {
		return model.VaultNode{}, fmt.Errorf("árvore do vault %d: %w", vaultID, err)
	}

	logger.Get(ctx).Debug().
		Int64("project_id", projectID).
		Int64("vault_id", vaultID).
		Int("files", node.FileCount()).
		Msg("Árvore de vaults montada")
	return node, nil
}

func (a *Aggregator) buildVaultNode(ctx context.Context, projectID, vaultID int64, depth int) (model.VaultNode, error) {
	if depth > maxVaultDepth {
		return model.VaultNode{}, fmt.Errorf("vault %d excede profundidade %d", vaultID, maxVaultDepth)
	}

	vault, err := a.client.GetVault(ctx, projectID, vaultID)
	if err != nil {
		return model.VaultNode{}, err
	}

	uploadsURL := vault.UploadsURL
	if uploadsURL == "" {
		uploadsURL = fmt.Sprintf("/buckets/%d/vaults/%d/uploads.json", projectID, vaultID)
	}
	uploads, err := a.client.ListUploads(ctx, uploadsURL)
	if err != nil {
		return model.VaultNode{}, err
	}

	subVaults, err := a.client.ListVaults(ctx, projectID, vaultID)
	if err != nil {
		return model.VaultNode{}, err
	}

	children := make([]model.VaultNode, 0, len(subVaults))
	for _, sv := range subVaults {
		child, err := a.buildVaultNode(ctx, projectID, sv.ID, depth+1)
		if err != nil {
			return model.VaultNode{}, err
		}
		children = append(children, child)
	}

	return model.VaultNode{
		ID:       vault.ID,
		Title:    vault.Title,
		AppURL:   vault.AppURL,
		Files:    vaultFiles(uploads),
		Children: children,
	}, nil
}

func vaultFiles(uploads []model.Upload) []model.VaultFile {
	files := make([]model.VaultFile, 0, len(uploads))
	for _, u := range uploads {
		title := u.Title
		if title == "" {
			title = u.Filename
		}
		files = append(files, model.VaultFile{
			Title:             title,
			PublicDownloadURL: u.DownloadURL,
			PreviewURL:        u.PreviewURL,
		})
	}
	return files
}
