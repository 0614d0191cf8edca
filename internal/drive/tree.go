package drive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/pathsafe"
	"github.com/rohits-web03/edudrive/internal/repositories"
)

type NodeType string

const (
	NodeFile   NodeType = "file"
	NodeFolder NodeType = "folder"
)

// NodeRef points at a file or a folder.
type NodeRef struct {
	Type NodeType
	ID   uuid.UUID
}

func FileRef(id uuid.UUID) NodeRef   { return NodeRef{Type: NodeFile, ID: id} }
func FolderRef(id uuid.UUID) NodeRef { return NodeRef{Type: NodeFolder, ID: id} }

// FileMeta is the record-level description of a file placed in the tree.
type FileMeta struct {
	Name          string
	StoredName    string
	StoragePath   string
	MimeType      string
	ContentHash   string
	Size          int64
	IsPublic      bool
	ThumbnailPath *string
}

type FolderOption func(*models.Folder)

// WithSubject links the folder to an external subject grouping.
func WithSubject(id uuid.UUID) FolderOption {
	return func(f *models.Folder) { f.SubjectID = &id }
}

// PublicFolder marks the folder as publicly listable.
func PublicFolder() FolderOption {
	return func(f *models.Folder) { f.IsPublic = true }
}

// Listing is the active content of one folder (or the drive root).
type Listing struct {
	Folders []models.Folder `json:"folders"`
	Files   []models.File   `json:"files"`
}

// maxDepth bounds ancestor walks; deeper chains are treated as corrupt.
const maxDepth = 512

// Tree is the folder/file hierarchy of every drive. Mutations are
// serialized per drive; reads see only active nodes unless stated.
type Tree struct {
	db    *gorm.DB
	locks *keyedMutex
	now   func() time.Time
}

func NewTree(db *gorm.DB, now func() time.Time) *Tree {
	if now == nil {
		now = time.Now
	}
	return &Tree{db: db, locks: newKeyedMutex(), now: now}
}

// lockDrive serializes tree mutations on one drive. It must be taken
// before any transaction is opened.
func (t *Tree) lockDrive(driveID uuid.UUID) func() { return t.locks.Lock(driveID) }

func (t *Tree) mutate(ctx context.Context, driveID uuid.UUID, fn func(ctx context.Context, tx *gorm.DB) error) error {
	unlock := t.lockDrive(driveID)
	defer unlock()
	return repositories.InTx(ctx, t.db, fn)
}

// CreateFolder adds an active folder under parentID (nil = drive root).
func (t *Tree) CreateFolder(ctx context.Context, driveID uuid.UUID, parentID *uuid.UUID, name string, opts ...FolderOption) (*models.Folder, error) {
	clean, err := pathsafe.ValidateName(name)
	if err != nil {
		return nil, err
	}

	var folder *models.Folder
	err = t.mutate(ctx, driveID, func(ctx context.Context, tx *gorm.DB) error {
		if _, err := loadDrive(ctx, tx, driveID); err != nil {
			return err
		}
		parentPath := ""
		if parentID != nil {
			parent, err := t.activeFolder(ctx, tx, driveID, *parentID)
			if err != nil {
				return err
			}
			if parentPath, err = t.folderPath(ctx, tx, parent); err != nil {
				return err
			}
		}
		if err := checkFolderSibling(ctx, tx, driveID, parentID, clean, nil); err != nil {
			return err
		}

		folder = &models.Folder{
			DriveID:  driveID,
			ParentID: parentID,
			Name:     clean,
			Path:     pathsafe.BuildPath(parentPath, clean),
		}
		for _, opt := range opts {
			opt(folder)
		}
		if err := tx.Create(folder).Error; err != nil {
			return apperr.Wrap("tree.createFolder", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// CreateFile places a file record in the tree. It does not touch the
// quota ledger; uploads go through Service.Upload.
func (t *Tree) CreateFile(ctx context.Context, driveID uuid.UUID, folderID *uuid.UUID, meta FileMeta) (*models.File, error) {
	clean, err := pathsafe.ValidateName(meta.Name)
	if err != nil {
		return nil, err
	}
	meta.Name = clean

	var file *models.File
	err = t.mutate(ctx, driveID, func(ctx context.Context, tx *gorm.DB) error {
		var err error
		file, err = t.insertFile(ctx, tx, driveID, folderID, meta)
		return err
	})
	return file, err
}

// insertFile must run inside a transaction with the drive lock held.
func (t *Tree) insertFile(ctx context.Context, tx *gorm.DB, driveID uuid.UUID, folderID *uuid.UUID, meta FileMeta) (*models.File, error) {
	if err := t.placeable(ctx, tx, driveID, folderID, meta.Name); err != nil {
		return nil, err
	}
	return t.createFileRow(ctx, tx, driveID, folderID, meta)
}

// placeable checks that a file named name may be added to folderID.
func (t *Tree) placeable(ctx context.Context, tx *gorm.DB, driveID uuid.UUID, folderID *uuid.UUID, name string) error {
	if folderID != nil {
		if _, err := t.activeFolder(ctx, tx, driveID, *folderID); err != nil {
			return err
		}
	}
	return checkFileSibling(ctx, tx, driveID, folderID, name, nil)
}

func (t *Tree) createFileRow(ctx context.Context, tx *gorm.DB, driveID uuid.UUID, folderID *uuid.UUID, meta FileMeta) (*models.File, error) {
	file := &models.File{
		DriveID:       driveID,
		FolderID:      folderID,
		OriginalName:  meta.Name,
		StoredName:    meta.StoredName,
		Size:          meta.Size,
		MimeType:      meta.MimeType,
		ContentHash:   meta.ContentHash,
		StoragePath:   meta.StoragePath,
		ThumbnailPath: meta.ThumbnailPath,
		IsPublic:      meta.IsPublic,
	}
	if err := tx.WithContext(ctx).Create(file).Error; err != nil {
		return nil, apperr.Wrap("tree.createFile", err)
	}
	return file, nil
}

// SoftDelete marks a node deleted. Deleting a folder cascades to its
// active subtree; every node of the cascade shares one timestamp.
func (t *Tree) SoftDelete(ctx context.Context, driveID uuid.UUID, ref NodeRef) error {
	return t.mutate(ctx, driveID, func(ctx context.Context, tx *gorm.DB) error {
		at := t.stamp()
		switch ref.Type {
		case NodeFile:
			f, err := t.fileIn(ctx, tx, driveID, ref.ID)
			if err != nil {
				return err
			}
			if !f.Active() {
				return fileNotFound()
			}
			return markFiles(tx, []uuid.UUID{f.ID}, models.StateDeleted, &at)

		case NodeFolder:
			root, err := t.activeFolder(ctx, tx, driveID, ref.ID)
			if err != nil {
				return err
			}
			ids, err := t.subtree(ctx, tx, root.ID, func(f *models.Folder) bool { return f.Active() })
			if err != nil {
				return err
			}
			if err := markFolders(tx, ids, models.StateDeleted, &at); err != nil {
				return err
			}
			res := tx.Model(&models.File{}).
				Where("folder_id IN ? AND state = ?", ids, models.StateActive).
				Updates(map[string]any{"state": models.StateDeleted, "deleted_at": at})
			if res.Error != nil {
				return apperr.Wrap("tree.softDelete", res.Error)
			}
			return nil
		}
		return badRef(ref)
	})
}

// Restore reverses a soft delete. A folder brings back exactly the nodes
// removed by the same cascade. The parent must be active and the name
// must still be free among the active siblings.
func (t *Tree) Restore(ctx context.Context, driveID uuid.UUID, ref NodeRef) error {
	return t.mutate(ctx, driveID, func(ctx context.Context, tx *gorm.DB) error {
		switch ref.Type {
		case NodeFile:
			f, err := t.fileIn(ctx, tx, driveID, ref.ID)
			if err != nil {
				return err
			}
			if f.Active() {
				return nil
			}
			if f.FolderID != nil {
				if _, err := t.activeFolder(ctx, tx, driveID, *f.FolderID); err != nil {
					return err
				}
			}
			if err := checkFileSibling(ctx, tx, driveID, f.FolderID, f.OriginalName, &f.ID); err != nil {
				return err
			}
			return markFiles(tx, []uuid.UUID{f.ID}, models.StateActive, nil)

		case NodeFolder:
			root, err := t.folderIn(ctx, tx, driveID, ref.ID)
			if err != nil {
				return err
			}
			if root.Active() {
				return nil
			}
			if root.ParentID != nil {
				if _, err := t.activeFolder(ctx, tx, driveID, *root.ParentID); err != nil {
					return err
				}
			}
			if err := checkFolderSibling(ctx, tx, driveID, root.ParentID, root.Name, &root.ID); err != nil {
				return err
			}

			at := root.DeletedAt
			sameCascade := func(f *models.Folder) bool {
				return !f.Active() && f.DeletedAt != nil && at != nil && f.DeletedAt.Equal(*at)
			}
			ids, err := t.subtree(ctx, tx, root.ID, sameCascade)
			if err != nil {
				return err
			}
			if err := markFolders(tx, ids, models.StateActive, nil); err != nil {
				return err
			}

			var files []models.File
			if err := tx.Where("folder_id IN ? AND state = ?", ids, models.StateDeleted).Find(&files).Error; err != nil {
				return apperr.Wrap("tree.restore", err)
			}
			var fileIDs []uuid.UUID
			for _, f := range files {
				if f.DeletedAt != nil && at != nil && f.DeletedAt.Equal(*at) {
					fileIDs = append(fileIDs, f.ID)
				}
			}
			return markFiles(tx, fileIDs, models.StateActive, nil)
		}
		return badRef(ref)
	})
}

// Move reparents a node within its drive (nil = drive root). Folders may
// not move into themselves or their descendants; the subtree's paths are
// recomputed.
func (t *Tree) Move(ctx context.Context, driveID uuid.UUID, ref NodeRef, newParentID *uuid.UUID) error {
	return t.mutate(ctx, driveID, func(ctx context.Context, tx *gorm.DB) error {
		switch ref.Type {
		case NodeFile:
			f, err := t.activeFile(ctx, tx, driveID, ref.ID)
			if err != nil {
				return err
			}
			if newParentID != nil {
				if _, err := t.activeFolder(ctx, tx, driveID, *newParentID); err != nil {
					return err
				}
			}
			if err := checkFileSibling(ctx, tx, driveID, newParentID, f.OriginalName, &f.ID); err != nil {
				return err
			}
			return updateColumn(tx, &models.File{}, f.ID, "folder_id", nullableID(newParentID))

		case NodeFolder:
			f, err := t.activeFolder(ctx, tx, driveID, ref.ID)
			if err != nil {
				return err
			}
			if newParentID != nil {
				if *newParentID == f.ID {
					return cycleError()
				}
				parent, err := t.activeFolder(ctx, tx, driveID, *newParentID)
				if err != nil {
					return err
				}
				inside, err := t.isDescendant(ctx, tx, parent, f.ID)
				if err != nil {
					return err
				}
				if inside {
					return cycleError()
				}
			}
			if err := checkFolderSibling(ctx, tx, driveID, newParentID, f.Name, &f.ID); err != nil {
				return err
			}
			if err := updateColumn(tx, &models.Folder{}, f.ID, "parent_id", nullableID(newParentID)); err != nil {
				return err
			}
			f.ParentID = newParentID
			return t.refreshSubtree(ctx, tx, f)
		}
		return badRef(ref)
	})
}

// Rename changes a node's name in place; a folder's subtree paths follow.
func (t *Tree) Rename(ctx context.Context, driveID uuid.UUID, ref NodeRef, newName string) error {
	clean, err := pathsafe.ValidateName(newName)
	if err != nil {
		return err
	}
	return t.mutate(ctx, driveID, func(ctx context.Context, tx *gorm.DB) error {
		switch ref.Type {
		case NodeFile:
			f, err := t.activeFile(ctx, tx, driveID, ref.ID)
			if err != nil {
				return err
			}
			if err := checkFileSibling(ctx, tx, driveID, f.FolderID, clean, &f.ID); err != nil {
				return err
			}
			return updateColumn(tx, &models.File{}, f.ID, "original_name", clean)

		case NodeFolder:
			f, err := t.activeFolder(ctx, tx, driveID, ref.ID)
			if err != nil {
				return err
			}
			if err := checkFolderSibling(ctx, tx, driveID, f.ParentID, clean, &f.ID); err != nil {
				return err
			}
			if err := updateColumn(tx, &models.Folder{}, f.ID, "name", clean); err != nil {
				return err
			}
			f.Name = clean
			return t.refreshSubtree(ctx, tx, f)
		}
		return badRef(ref)
	})
}

// MaterializePath walks the node's ancestor chain and joins the names.
// The stored folder path is not consulted.
func (t *Tree) MaterializePath(ctx context.Context, ref NodeRef) (string, error) {
	conn := repositories.Conn(ctx, t.db)
	switch ref.Type {
	case NodeFile:
		var f models.File
		if err := conn.First(&f, "id = ?", ref.ID).Error; err != nil {
			return "", notFound(err, fileNotFound(), "tree.materialize")
		}
		if f.FolderID == nil {
			return pathsafe.BuildPath(f.OriginalName), nil
		}
		var parent models.Folder
		if err := conn.First(&parent, "id = ?", *f.FolderID).Error; err != nil {
			return "", notFound(err, folderNotFound(), "tree.materialize")
		}
		dir, err := t.folderPath(ctx, conn, &parent)
		if err != nil {
			return "", err
		}
		return pathsafe.BuildPath(dir, f.OriginalName), nil

	case NodeFolder:
		var f models.Folder
		if err := conn.First(&f, "id = ?", ref.ID).Error; err != nil {
			return "", notFound(err, folderNotFound(), "tree.materialize")
		}
		return t.folderPath(ctx, conn, &f)
	}
	return "", badRef(ref)
}

// ResolveFolderPath finds the active folder at a root-relative path.
func (t *Tree) ResolveFolderPath(ctx context.Context, driveID uuid.UUID, path string) (*models.Folder, error) {
	clean, err := pathsafe.ValidatePath(path)
	if err != nil {
		return nil, err
	}
	conn := repositories.Conn(ctx, t.db)

	var (
		parentID *uuid.UUID
		current  *models.Folder
	)
	for _, segment := range pathsafe.Split(clean) {
		var f models.Folder
		q := conn.Where("drive_id = ? AND state = ? AND name = ?", driveID, models.StateActive, segment)
		err := whereParent(q, "parent_id", parentID).First(&f).Error
		if err != nil {
			return nil, notFound(err, folderNotFound().WithDetails(map[string]any{"path": clean}), "tree.resolve")
		}
		current = &f
		parentID = &f.ID
	}
	if current == nil {
		return nil, apperr.New(apperr.InvalidPath, "Invalid path: empty").
			WithDetails(map[string]any{"reason": pathsafe.ReasonEmpty})
	}
	return current, nil
}

// List returns the active children of folderID (nil = drive root).
func (t *Tree) List(ctx context.Context, driveID uuid.UUID, folderID *uuid.UUID) (*Listing, error) {
	conn := repositories.Conn(ctx, t.db)
	if folderID != nil {
		if _, err := t.activeFolder(ctx, conn, driveID, *folderID); err != nil {
			return nil, err
		}
	}

	out := &Listing{Folders: []models.Folder{}, Files: []models.File{}}
	q := conn.Where("drive_id = ? AND state = ?", driveID, models.StateActive)
	if err := whereParent(q, "parent_id", folderID).Order("name ASC").Find(&out.Folders).Error; err != nil {
		return nil, apperr.Wrap("tree.list", err)
	}
	q = conn.Where("drive_id = ? AND state = ?", driveID, models.StateActive)
	if err := whereParent(q, "folder_id", folderID).Order("original_name ASC").Find(&out.Files).Error; err != nil {
		return nil, apperr.Wrap("tree.list", err)
	}
	return out, nil
}

// RepairPaths recomputes every stored folder path of a drive from the
// parent chain and returns how many were stale.
func (t *Tree) RepairPaths(ctx context.Context, driveID uuid.UUID) (int, error) {
	conn := repositories.Conn(ctx, t.db)
	var folders []models.Folder
	if err := conn.Where("drive_id = ?", driveID).Find(&folders).Error; err != nil {
		return 0, apperr.Wrap("tree.repairPaths", err)
	}

	byID := make(map[uuid.UUID]*models.Folder, len(folders))
	for i := range folders {
		byID[folders[i].ID] = &folders[i]
	}

	fixed := 0
	for i := range folders {
		f := &folders[i]
		names := []string{f.Name}
		cur := f.ParentID
		for depth := 0; cur != nil; depth++ {
			p, ok := byID[*cur]
			if !ok || depth > maxDepth {
				return fixed, apperr.Wrap("tree.repairPaths", errors.New("broken ancestor chain for folder "+f.ID.String()))
			}
			names = append(names, p.Name)
			cur = p.ParentID
		}
		path := pathsafe.BuildPath(reversed(names)...)
		if path == f.Path {
			continue
		}
		if err := updateColumn(conn, &models.Folder{}, f.ID, "path", path); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

// folderPath materializes a folder's path by walking its parents.
func (t *Tree) folderPath(ctx context.Context, conn *gorm.DB, f *models.Folder) (string, error) {
	names := []string{f.Name}
	seen := map[uuid.UUID]bool{f.ID: true}
	cur := f.ParentID
	for cur != nil {
		if seen[*cur] || len(names) > maxDepth {
			return "", apperr.Wrap("tree.materialize", errors.New("folder ancestry contains a cycle"))
		}
		seen[*cur] = true

		var p models.Folder
		if err := conn.WithContext(ctx).First(&p, "id = ?", *cur).Error; err != nil {
			return "", notFound(err, folderNotFound(), "tree.materialize")
		}
		names = append(names, p.Name)
		cur = p.ParentID
	}
	return pathsafe.BuildPath(reversed(names)...), nil
}

// isDescendant reports whether folderID is node itself or one of its ancestors.
func (t *Tree) isDescendant(ctx context.Context, conn *gorm.DB, node *models.Folder, folderID uuid.UUID) (bool, error) {
	cur := node
	for depth := 0; ; depth++ {
		if cur.ID == folderID {
			return true, nil
		}
		if cur.ParentID == nil {
			return false, nil
		}
		if depth > maxDepth {
			return false, apperr.Wrap("tree.move", errors.New("folder ancestry too deep"))
		}
		var p models.Folder
		if err := conn.WithContext(ctx).First(&p, "id = ?", *cur.ParentID).Error; err != nil {
			return false, notFound(err, folderNotFound(), "tree.move")
		}
		cur = &p
	}
}

// refreshSubtree rewrites the stored path of root and all its descendants.
func (t *Tree) refreshSubtree(ctx context.Context, tx *gorm.DB, root *models.Folder) error {
	rootPath, err := t.folderPath(ctx, tx, root)
	if err != nil {
		return err
	}
	if rootPath != root.Path {
		if err := updateColumn(tx, &models.Folder{}, root.ID, "path", rootPath); err != nil {
			return err
		}
	}

	type item struct {
		id   uuid.UUID
		path string
	}
	queue := []item{{root.ID, rootPath}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		var children []models.Folder
		if err := tx.Where("parent_id = ?", cur.id).Find(&children).Error; err != nil {
			return apperr.Wrap("tree.refreshPaths", err)
		}
		for _, c := range children {
			p := pathsafe.BuildPath(cur.path, c.Name)
			if p != c.Path {
				if err := updateColumn(tx, &models.Folder{}, c.ID, "path", p); err != nil {
					return err
				}
			}
			queue = append(queue, item{c.ID, p})
		}
	}
	return nil
}

// subtree returns root and every descendant folder accepted by keep.
// Descent stops at rejected folders.
func (t *Tree) subtree(ctx context.Context, tx *gorm.DB, rootID uuid.UUID, keep func(*models.Folder) bool) ([]uuid.UUID, error) {
	ids := []uuid.UUID{rootID}
	frontier := []uuid.UUID{rootID}
	for len(frontier) > 0 {
		var children []models.Folder
		if err := tx.WithContext(ctx).Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
			return nil, apperr.Wrap("tree.subtree", err)
		}
		frontier = frontier[:0]
		for i := range children {
			if keep(&children[i]) {
				ids = append(ids, children[i].ID)
				frontier = append(frontier, children[i].ID)
			}
		}
		if len(ids) > 100_000 {
			return nil, apperr.Wrap("tree.subtree", errors.New("subtree too large"))
		}
	}
	return ids, nil
}

func (t *Tree) stamp() time.Time {
	return t.now().UTC().Truncate(time.Microsecond)
}

func (t *Tree) folderIn(ctx context.Context, conn *gorm.DB, driveID, id uuid.UUID) (*models.Folder, error) {
	var f models.Folder
	if err := conn.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, notFound(err, folderNotFound(), "tree.folder")
	}
	if f.DriveID != driveID {
		return nil, notOwner()
	}
	return &f, nil
}

func (t *Tree) activeFolder(ctx context.Context, conn *gorm.DB, driveID, id uuid.UUID) (*models.Folder, error) {
	f, err := t.folderIn(ctx, conn, driveID, id)
	if err != nil {
		return nil, err
	}
	if !f.Active() {
		return nil, folderNotFound()
	}
	return f, nil
}

func (t *Tree) fileIn(ctx context.Context, conn *gorm.DB, driveID, id uuid.UUID) (*models.File, error) {
	var f models.File
	if err := conn.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, notFound(err, fileNotFound(), "tree.file")
	}
	if f.DriveID != driveID {
		return nil, notOwner()
	}
	return &f, nil
}

func (t *Tree) activeFile(ctx context.Context, conn *gorm.DB, driveID, id uuid.UUID) (*models.File, error) {
	f, err := t.fileIn(ctx, conn, driveID, id)
	if err != nil {
		return nil, err
	}
	if !f.Active() {
		return nil, fileNotFound()
	}
	return f, nil
}

func checkFolderSibling(ctx context.Context, conn *gorm.DB, driveID uuid.UUID, parentID *uuid.UUID, name string, exclude *uuid.UUID) error {
	q := conn.WithContext(ctx).Where("drive_id = ? AND state = ? AND name = ?", driveID, models.StateActive, name)
	q = whereParent(q, "parent_id", parentID)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var existing models.Folder
	err := q.Limit(1).Find(&existing).Error
	if err != nil {
		return apperr.Wrap("tree.siblings", err)
	}
	if existing.ID == uuid.Nil {
		return nil
	}
	return apperr.Newf(apperr.DuplicateFound, "A folder named %q already exists here", name).
		WithDetails(map[string]any{"kind": "name", "name": name, "existingFolderId": existing.ID.String()})
}

func checkFileSibling(ctx context.Context, conn *gorm.DB, driveID uuid.UUID, folderID *uuid.UUID, name string, exclude *uuid.UUID) error {
	q := conn.WithContext(ctx).Where("drive_id = ? AND state = ? AND original_name = ?", driveID, models.StateActive, name)
	q = whereParent(q, "folder_id", folderID)
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var existing models.File
	err := q.Limit(1).Find(&existing).Error
	if err != nil {
		return apperr.Wrap("tree.siblings", err)
	}
	if existing.ID == uuid.Nil {
		return nil
	}
	return apperr.Newf(apperr.DuplicateFound, "A file named %q already exists here", name).
		WithDetails(map[string]any{"kind": "name", "name": name, "existingFileId": existing.ID.String()})
}

func whereParent(q *gorm.DB, column string, id *uuid.UUID) *gorm.DB {
	if id == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *id)
}

func markFolders(tx *gorm.DB, ids []uuid.UUID, state models.NodeState, at *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	res := tx.Model(&models.Folder{}).Where("id IN ?", ids).
		Updates(map[string]any{"state": state, "deleted_at": nullableTime(at)})
	return apperr.Wrap("tree.mark", res.Error)
}

func markFiles(tx *gorm.DB, ids []uuid.UUID, state models.NodeState, at *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	res := tx.Model(&models.File{}).Where("id IN ?", ids).
		Updates(map[string]any{"state": state, "deleted_at": nullableTime(at)})
	return apperr.Wrap("tree.mark", res.Error)
}

func updateColumn(tx *gorm.DB, model any, id uuid.UUID, column string, value any) error {
	return apperr.Wrap("tree.update", tx.Model(model).Where("id = ?", id).Update(column, value).Error)
}

func nullableID(id *uuid.UUID) any {
	if id == nil {
		return gorm.Expr("NULL")
	}
	return *id
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return gorm.Expr("NULL")
	}
	return *t
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func notFound(err error, nf *apperr.Error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return apperr.Wrap(op, err)
}

func fileNotFound() *apperr.Error   { return apperr.New(apperr.FileNotFound, "File not found") }
func folderNotFound() *apperr.Error { return apperr.New(apperr.FolderNotFound, "Folder not found") }

func notOwner() *apperr.Error {
	return apperr.New(apperr.NotOwner, "The item belongs to another drive")
}

func cycleError() *apperr.Error {
	return apperr.New(apperr.InvalidInput, "A folder cannot be moved into itself or one of its descendants").
		WithDetails(map[string]any{"reason": "cycle"})
}

func badRef(ref NodeRef) error {
	return apperr.Newf(apperr.InvalidInput, "unknown node type %q", ref.Type)
}
