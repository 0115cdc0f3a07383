package repository

import (
	"sort"
	"sync"

	"github.com/yukifiles/yukifiles/internal/models"
)

// FileRepository keeps files and folders in a single map guarded by one
// lock, so subtree operations (cascade delete, path recomputation) observe
// and mutate the tree atomically.
type FileRepository struct {
	mu    sync.RWMutex
	nodes map[string]*models.FileNode
}

func NewFileRepository() *FileRepository {
	return &FileRepository{nodes: make(map[string]*models.FileNode)}
}

func (r *FileRepository) Create(node *models.FileNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[node.ID]; exists {
		return ErrDuplicateToken
	}
	r.nodes[node.ID] = cloneNode(node)
	return nil
}

func (r *FileRepository) GetByID(id string) (*models.FileNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneNode(node), nil
}

// Update overwrites an existing node.
func (r *FileRepository) Update(node *models.FileNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[node.ID]; !ok {
		return ErrNotFound
	}
	r.nodes[node.ID] = cloneNode(node)
	return nil
}

func (r *FileRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.nodes[id]; !ok {
		return ErrNotFound
	}
	delete(r.nodes, id)
	return nil
}

// ListByOwner returns every node owned by ownerID, oldest first.
func (r *FileRepository) ListByOwner(ownerID string) []*models.FileNode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.FileNode
	for _, node := range r.nodes {
		if node.OwnerID == ownerID {
			out = append(out, cloneNode(node))
		}
	}
	sortByCreation(out)
	return out
}

// ListChildren returns the direct children of parentID (nil means root),
// scoped to the owner. Folders and files both appear.
func (r *FileRepository) ListChildren(ownerID string, parentID *string) []*models.FileNode {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.FileNode
	for _, node := range r.nodes {
		if node.OwnerID != ownerID || !sameParent(node.ParentID, parentID) {
			continue
		}
		out = append(out, cloneNode(node))
	}
	sortByCreation(out)
	return out
}

// Descendants returns every node whose parent chain terminates at folderID,
// files before folders and children before their ancestors, which is the
// order a cascade delete must process them in.
func (r *FileRepository) Descendants(folderID string) []*models.FileNode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.descendantsLocked(folderID)
}

func (r *FileRepository) descendantsLocked(folderID string) []*models.FileNode {
	var files, folders []*models.FileNode
	for _, node := range r.nodes {
		if node.ParentID == nil || *node.ParentID != folderID {
			continue
		}
		if node.Kind == models.KindFolder {
			// Grandchildren first so deletion order stays leaf-to-root.
			sub := r.descendantsLocked(node.ID)
			for _, d := range sub {
				if d.Kind == models.KindFile {
					files = append(files, d)
				} else {
					folders = append(folders, d)
				}
			}
			folders = append(folders, cloneNode(node))
		} else {
			files = append(files, cloneNode(node))
		}
	}
	return append(files, folders...)
}

// DeleteSubtree removes a folder and everything beneath it in one atomic
// step. It returns the removed nodes (descendants first, the folder itself
// last) so the caller can settle quota and activity bookkeeping. All
// affected IDs are collected before anything is deleted.
func (r *FileRepository) DeleteSubtree(folderID string) ([]*models.FileNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	folder, ok := r.nodes[folderID]
	if !ok {
		return nil, ErrNotFound
	}

	doomed := r.descendantsLocked(folderID)
	doomed = append(doomed, cloneNode(folder))
	for _, node := range doomed {
		delete(r.nodes, node.ID)
	}
	return doomed, nil
}

// RecomputeSubtreePaths rewrites the derived path of rootID and every
// descendant after a rename or move. The new parent path (empty for root
// placement) is prepended to each node's own name.
func (r *FileRepository) RecomputeSubtreePaths(rootID string, parentPath []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	root, ok := r.nodes[rootID]
	if !ok {
		return ErrNotFound
	}
	r.recomputeLocked(root, parentPath)
	return nil
}

func (r *FileRepository) recomputeLocked(node *models.FileNode, parentPath []string) {
	path := make([]string, 0, len(parentPath)+1)
	path = append(path, parentPath...)
	path = append(path, node.Name)
	node.Path = path

	if node.Kind != models.KindFolder {
		return
	}
	for _, child := range r.nodes {
		if child.ParentID != nil && *child.ParentID == node.ID {
			r.recomputeLocked(child, path)
		}
	}
}

// Counts reports totals for usage stats: files, folders, and summed file sizes.
func (r *FileRepository) Counts() (files int, folders int, totalBytes int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, node := range r.nodes {
		if node.Kind == models.KindFolder {
			folders++
		} else {
			files++
			totalBytes += node.Size
		}
	}
	return files, folders, totalBytes
}

// CountFilesByOwner returns the number of files (not folders) per owner.
func (r *FileRepository) CountFilesByOwner() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int)
	for _, node := range r.nodes {
		if node.Kind == models.KindFile {
			out[node.OwnerID]++
		}
	}
	return out
}

// Snapshot returns files and folders as separate maps, matching the on-disk
// snapshot layout.
func (r *FileRepository) Snapshot() (files, folders map[string]*models.FileNode) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files = make(map[string]*models.FileNode)
	folders = make(map[string]*models.FileNode)
	for id, node := range r.nodes {
		if node.Kind == models.KindFolder {
			folders[id] = cloneNode(node)
		} else {
			files[id] = cloneNode(node)
		}
	}
	return files, folders
}

func (r *FileRepository) Restore(files, folders map[string]*models.FileNode) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nodes = make(map[string]*models.FileNode, len(files)+len(folders))
	for id, node := range files {
		r.nodes[id] = cloneNode(node)
	}
	for id, node := range folders {
		r.nodes[id] = cloneNode(node)
	}
}

func cloneNode(node *models.FileNode) *models.FileNode {
	clone := *node
	if node.ParentID != nil {
		parent := *node.ParentID
		clone.ParentID = &parent
	}
	clone.Path = append([]string(nil), node.Path...)
	clone.Tags = append([]string(nil), node.Tags...)
	if node.ShareSettings != nil {
		settings := *node.ShareSettings
		clone.ShareSettings = &settings
	}
	return &clone
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortByCreation(nodes []*models.FileNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].ID < nodes[j].ID
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
}
