package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/yukifiles/yukifiles/internal/models"
	"github.com/yukifiles/yukifiles/internal/repository"
	"github.com/yukifiles/yukifiles/pkg/logger"
	"github.com/yukifiles/yukifiles/pkg/sanitize"
)

// tagsByExtension maps filename extensions to classification tags attached
// at upload time. Tags are derived once, at creation.
var tagsByExtension = map[string]string{
	"jpg": "image", "jpeg": "image", "png": "image", "gif": "image", "webp": "image",
	"mp4": "video", "avi": "video", "mov": "video", "wmv": "video",
	"mp3": "audio", "wav": "audio", "flac": "audio",
	"pdf": "document", "doc": "document", "docx": "document",
	"zip": "archive", "rar": "archive", "7z": "archive",
}

// sniffSize is the number of leading bytes read for MIME-type detection
// when the caller supplies no content type.
const sniffSize = 3072

// FileService owns the hierarchical file/folder tree: uploads with quota
// enforcement, cascade deletes, derived path maintenance, and the payload
// blobs on disk. Payloads are opaque: the only inspection is MIME sniffing
// at upload.
type FileService struct {
	fileRepo    *repository.FileRepository
	users       *UserService
	activity    *ActivityService
	persister   Persister
	storagePath string
	settings    SettingsProvider
}

func NewFileService(
	fileRepo *repository.FileRepository,
	users *UserService,
	activity *ActivityService,
	persister Persister,
	storagePath string,
) *FileService {
	return &FileService{
		fileRepo:    fileRepo,
		users:       users,
		activity:    activity,
		persister:   persister,
		storagePath: storagePath,
	}
}

func (s *FileService) SetSettingsProvider(sp SettingsProvider) {
	s.settings = sp
}

type UploadRequest struct {
	OwnerID     string
	Name        string
	MimeType    string
	Size        int64
	Content     io.Reader
	ParentID    *string
	Description string
}

// Upload stores a new file. The quota is reserved before anything is
// written; on any later failure the reservation is rolled back, so a failed
// upload mutates nothing.
func (s *FileService) Upload(req *UploadRequest) (*models.FileNode, error) {
	name := sanitize.Filename(req.Name)

	if s.settings != nil {
		if max := s.settings.GetMaxUploadSize(); max > 0 && req.Size > max {
			return nil, fmt.Errorf("%w (%d bytes)", ErrUploadTooLarge, max)
		}
	}

	parentPath, err := s.resolveParentPath(req.OwnerID, req.ParentID)
	if err != nil {
		return nil, err
	}

	if err := s.users.Reserve(req.OwnerID, req.Size); err != nil {
		return nil, err
	}
	releaseQuota := func(n int64) { s.users.Release(req.OwnerID, n) }

	content := req.Content
	mimeType := req.MimeType
	if mimeType == "" {
		content, mimeType, err = sniffMimeType(content)
		if err != nil {
			releaseQuota(req.Size)
			return nil, err
		}
	}

	fileID := "file_" + uuid.New().String()
	handle := fileID + ".bin"
	blobPath := filepath.Join(s.storagePath, handle)

	if err := os.MkdirAll(s.storagePath, 0750); err != nil {
		releaseQuota(req.Size)
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	// #nosec G304 -- blobPath is built from the trusted storage path and a server-generated ID.
	blob, err := os.OpenFile(blobPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		releaseQuota(req.Size)
		return nil, fmt.Errorf("create blob: %w", err)
	}

	written, err := io.Copy(blob, content)
	closeErr := blob.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = removeFileIfExists(blobPath)
		releaseQuota(req.Size)
		return nil, fmt.Errorf("write blob: %w", err)
	}

	// Settle the reservation against the bytes actually written.
	if written != req.Size {
		releaseQuota(req.Size - written)
	}

	now := time.Now()
	node := &models.FileNode{
		ID:             fileID,
		Name:           name,
		Kind:           models.KindFile,
		MimeType:       mimeType,
		Size:           written,
		Content:        handle,
		ParentID:       req.ParentID,
		Path:           childPath(parentPath, name),
		OwnerID:        req.OwnerID,
		Tags:           extractTags(name),
		Description:    req.Description,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAccessedAt: now,
	}

	if err := s.fileRepo.Create(node); err != nil {
		_ = removeFileIfExists(blobPath)
		releaseQuota(written)
		return nil, fmt.Errorf("persist file node: %w", err)
	}

	s.activity.Record(req.OwnerID, models.ActionFileUploaded, fmt.Sprintf("Uploaded %s", name), map[string]string{
		"file_id": fileID,
	})
	s.persister.Persist()

	return node, nil
}

// CreateFolder adds a folder. Folders carry no size, so there is no quota
// check.
func (s *FileService) CreateFolder(ownerID, name string, parentID *string) (*models.FileNode, error) {
	name = sanitize.Filename(name)

	parentPath, err := s.resolveParentPath(ownerID, parentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	folder := &models.FileNode{
		ID:             "folder_" + uuid.New().String(),
		Name:           name,
		Kind:           models.KindFolder,
		ParentID:       parentID,
		Path:           childPath(parentPath, name),
		OwnerID:        ownerID,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastAccessedAt: now,
	}

	if err := s.fileRepo.Create(folder); err != nil {
		return nil, fmt.Errorf("persist folder: %w", err)
	}

	s.activity.Record(ownerID, models.ActionFolderCreated, fmt.Sprintf("Created folder %s", name), nil)
	s.persister.Persist()

	return folder, nil
}

// Delete removes a file. It reports false, without distinguishing why, when
// the file does not exist or is not owned by ownerID.
func (s *FileService) Delete(ownerID, fileID string) bool {
	node, err := s.fileRepo.GetByID(fileID)
	if err != nil || node.OwnerID != ownerID || node.Kind != models.KindFile {
		return false
	}

	if err := s.fileRepo.Delete(fileID); err != nil {
		return false
	}
	s.users.Release(ownerID, node.Size)
	s.removeBlob(node)

	logger.Audit("file_deleted", ownerID, map[string]string{"file_id": fileID})
	s.activity.Record(ownerID, models.ActionFileDeleted, fmt.Sprintf("Deleted %s", node.Name), nil)
	s.persister.Persist()

	return true
}

// DeleteFolder cascades: every descendant file and folder is collected
// first, then removed in one atomic step, and the owner's quota is credited
// with the sum of the deleted file sizes.
func (s *FileService) DeleteFolder(ownerID, folderID string) bool {
	folder, err := s.fileRepo.GetByID(folderID)
	if err != nil || folder.OwnerID != ownerID || folder.Kind != models.KindFolder {
		return false
	}

	removed, err := s.fileRepo.DeleteSubtree(folderID)
	if err != nil {
		return false
	}

	var freed int64
	var fileCount int
	for _, node := range removed {
		if node.Kind == models.KindFile {
			freed += node.Size
			fileCount++
			s.removeBlob(node)
		}
	}
	if freed > 0 {
		s.users.Release(ownerID, freed)
	}

	logger.Audit("folder_deleted", ownerID, map[string]string{
		"folder_id": folderID,
		"files":     fmt.Sprintf("%d", fileCount),
	})
	s.activity.Record(ownerID, models.ActionFolderDeleted, fmt.Sprintf("Deleted folder %s", folder.Name), map[string]string{
		"descendants": fmt.Sprintf("%d", len(removed)-1),
	})
	s.persister.Persist()

	return true
}

// Search matches a case-insensitive substring against name, tags, and
// description, scoped to the owner's files. Result order follows creation
// order; no ordering is guaranteed to callers.
func (s *FileService) Search(ownerID, query string) []*models.FileNode {
	q := strings.ToLower(query)

	var out []*models.FileNode
	for _, node := range s.fileRepo.ListByOwner(ownerID) {
		if node.Kind != models.KindFile {
			continue
		}
		if matchesQuery(node, q) {
			out = append(out, node)
		}
	}
	return out
}

func matchesQuery(node *models.FileNode, q string) bool {
	if strings.Contains(strings.ToLower(node.Name), q) {
		return true
	}
	for _, tag := range node.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(node.Description), q)
}

// ListByParent returns the direct children (files and folders) of parentID,
// or the root listing when parentID is nil.
func (s *FileService) ListByParent(ownerID string, parentID *string) []*models.FileNode {
	return s.fileRepo.ListChildren(ownerID, parentID)
}

func (s *FileService) Get(ownerID, id string) (*models.FileNode, error) {
	node, err := s.fileRepo.GetByID(id)
	if err != nil || node.OwnerID != ownerID {
		return nil, ErrFileNotFound
	}
	return node, nil
}

// Rename changes a node's name and rewrites the derived paths of the node
// and, for folders, its whole subtree.
func (s *FileService) Rename(ownerID, id, newName string) (*models.FileNode, error) {
	node, err := s.Get(ownerID, id)
	if err != nil {
		return nil, err
	}

	node.Name = sanitize.Filename(newName)
	node.UpdatedAt = time.Now()
	if err := s.fileRepo.Update(node); err != nil {
		return nil, err
	}

	parentPath, err := s.resolveParentPath(ownerID, node.ParentID)
	if err != nil {
		return nil, err
	}
	if err := s.fileRepo.RecomputeSubtreePaths(id, parentPath); err != nil {
		return nil, err
	}

	s.activity.Record(ownerID, models.ActionFileRenamed, fmt.Sprintf("Renamed to %s", node.Name), nil)
	s.persister.Persist()

	return s.Get(ownerID, id)
}

// Move reparents a node. The destination must be a folder owned by the same
// user, and a folder can never be moved into its own subtree.
func (s *FileService) Move(ownerID, id string, newParentID *string) (*models.FileNode, error) {
	node, err := s.Get(ownerID, id)
	if err != nil {
		return nil, err
	}

	parentPath, err := s.resolveParentPath(ownerID, newParentID)
	if err != nil {
		return nil, err
	}

	if newParentID != nil {
		if err := s.checkNoCycle(id, *newParentID); err != nil {
			return nil, err
		}
	}

	node.ParentID = newParentID
	node.UpdatedAt = time.Now()
	if err := s.fileRepo.Update(node); err != nil {
		return nil, err
	}
	if err := s.fileRepo.RecomputeSubtreePaths(id, parentPath); err != nil {
		return nil, err
	}

	s.activity.Record(ownerID, models.ActionFileMoved, fmt.Sprintf("Moved %s", node.Name), nil)
	s.persister.Persist()

	return s.Get(ownerID, id)
}

// checkNoCycle walks up from the destination folder; finding the moved node
// on the way means the move would orphan the subtree.
func (s *FileService) checkNoCycle(movedID, destID string) error {
	cur := destID
	for {
		if cur == movedID {
			return ErrCyclicMove
		}
		node, err := s.fileRepo.GetByID(cur)
		if err != nil {
			return nil
		}
		if node.ParentID == nil {
			return nil
		}
		cur = *node.ParentID
	}
}

func (s *FileService) SetStarred(ownerID, id string, starred bool) (*models.FileNode, error) {
	node, err := s.Get(ownerID, id)
	if err != nil {
		return nil, err
	}

	node.IsStarred = starred
	node.UpdatedAt = time.Now()
	if err := s.fileRepo.Update(node); err != nil {
		return nil, err
	}

	if starred {
		s.activity.Record(ownerID, models.ActionFileStarred, fmt.Sprintf("Starred %s", node.Name), nil)
	}
	s.persister.Persist()

	return node, nil
}

// Download opens the payload for an owner-initiated download and records it
// on the file's counters.
func (s *FileService) Download(ownerID, id string) (*models.FileNode, io.ReadCloser, error) {
	node, err := s.Get(ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	if node.Kind != models.KindFile {
		return nil, nil, ErrFileNotFound
	}

	reader, err := s.OpenBlob(node)
	if err != nil {
		return nil, nil, err
	}

	if err := s.RecordDownload(id); err != nil {
		_ = reader.Close()
		return nil, nil, err
	}

	s.activity.Record(ownerID, models.ActionFileDownload, fmt.Sprintf("Downloaded %s", node.Name), nil)
	s.persister.Persist()

	node.DownloadCount++
	return node, reader, nil
}

// OpenBlob resolves a node's opaque content handle to its payload bytes.
func (s *FileService) OpenBlob(node *models.FileNode) (io.ReadCloser, error) {
	if node.Content == "" {
		return nil, ErrFileNotFound
	}
	// #nosec G304 -- the handle is server-generated at upload time.
	f, err := os.Open(filepath.Join(s.storagePath, node.Content))
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// RecordView bumps a file's view counter and access time. Used by the share
// gate, which has already authorized the access.
func (s *FileService) RecordView(fileID string) error {
	node, err := s.fileRepo.GetByID(fileID)
	if err != nil {
		return ErrFileNotFound
	}
	node.ViewCount++
	node.LastAccessedAt = time.Now()
	return s.fileRepo.Update(node)
}

// RecordDownload bumps a file's download counter and access time.
func (s *FileService) RecordDownload(fileID string) error {
	node, err := s.fileRepo.GetByID(fileID)
	if err != nil {
		return ErrFileNotFound
	}
	node.DownloadCount++
	node.LastAccessedAt = time.Now()
	return s.fileRepo.Update(node)
}

func (s *FileService) resolveParentPath(ownerID string, parentID *string) ([]string, error) {
	if parentID == nil {
		return nil, nil
	}
	parent, err := s.fileRepo.GetByID(*parentID)
	if err != nil {
		return nil, ErrFolderNotFound
	}
	if parent.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if parent.Kind != models.KindFolder {
		return nil, ErrNotAFolder
	}
	return parent.Path, nil
}

func (s *FileService) removeBlob(node *models.FileNode) {
	if node.Content == "" {
		return
	}
	path := filepath.Join(s.storagePath, node.Content)
	if err := removeFileIfExists(path); err != nil {
		logger.Warn().Err(err).Str("file_id", node.ID).Msg("Failed to remove payload blob")
	}
}

func childPath(parentPath []string, name string) []string {
	path := make([]string, 0, len(parentPath)+1)
	path = append(path, parentPath...)
	return append(path, name)
}

func extractTags(name string) []string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return nil
	}
	ext := strings.ToLower(name[idx+1:])
	if tag, ok := tagsByExtension[ext]; ok {
		return []string{tag}
	}
	return nil
}

// sniffMimeType detects a content type from the leading bytes and returns a
// reader that replays them followed by the rest of the stream.
func sniffMimeType(content io.Reader) (io.Reader, string, error) {
	buf := make([]byte, sniffSize)
	n, err := io.ReadAtLeast(content, buf, 1)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("read upload header for MIME sniff: %w", err)
	}
	buf = buf[:n]

	detected := mimetype.Detect(buf)
	return io.MultiReader(bytes.NewReader(buf), content), detected.String(), nil
}

func removeFileIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
