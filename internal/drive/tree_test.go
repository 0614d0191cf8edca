package drive

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/models"
)

func TestTree_CreateAndList(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	tree := e.svc.Tree

	docs := e.mustFolder(d.ID, nil, "Docs")
	math := e.mustFolder(d.ID, &docs.ID, "Math")
	assert.Equal(t, "Docs/Math", math.Path)

	e.mustUpload(d.ID, &math.ID, "notes.txt", "algebra")
	e.mustUpload(d.ID, nil, "readme.md", "hi")

	root, err := tree.List(e.ctx, d.ID, nil)
	require.NoError(t, err)
	require.Len(t, root.Folders, 1)
	require.Len(t, root.Files, 1)
	assert.Equal(t, "readme.md", root.Files[0].OriginalName)

	inMath, err := tree.List(e.ctx, d.ID, &math.ID)
	require.NoError(t, err)
	assert.Empty(t, inMath.Folders)
	require.Len(t, inMath.Files, 1)

	_, err = tree.List(e.ctx, d.ID, ptr(uuid.New()))
	requireCode(t, err, apperr.FolderNotFound)
}

func TestTree_SiblingNamesAreCaseSensitive(t *testing.T) {
	e := newEnv(t)
	d := e.drive()

	e.mustFolder(d.ID, nil, "Docs")
	_, err := e.svc.Tree.CreateFolder(e.ctx, d.ID, nil, "Docs")
	requireCode(t, err, apperr.DuplicateFound)

	e.mustFolder(d.ID, nil, "docs")
}

func TestTree_RejectsInvalidNames(t *testing.T) {
	e := newEnv(t)
	d := e.drive()

	tests := []struct {
		name string
		code apperr.Code
	}{
		{"", apperr.InvalidName},
		{"a/b", apperr.InvalidName},
		{"..", apperr.InvalidName},
		{"CON", apperr.InvalidName},
	}
	for _, tt := range tests {
		_, err := e.svc.Tree.CreateFolder(e.ctx, d.ID, nil, tt.name)
		requireCode(t, err, tt.code)
	}
}

func TestTree_CrossDriveParentIsNotOwner(t *testing.T) {
	e := newEnv(t)
	mine, theirs := e.drive(), e.drive()
	foreign := e.mustFolder(theirs.ID, nil, "Private")

	_, err := e.svc.Tree.CreateFolder(e.ctx, mine.ID, &foreign.ID, "x")
	requireCode(t, err, apperr.NotOwner)

	err = e.svc.Tree.SoftDelete(e.ctx, mine.ID, FolderRef(foreign.ID))
	requireCode(t, err, apperr.NotOwner)
}

func TestTree_SoftDeleteCascadeAndRestore(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	tree := e.svc.Tree

	top := e.mustFolder(d.ID, nil, "Top")
	mid := e.mustFolder(d.ID, &top.ID, "Mid")
	leaf := e.mustFolder(d.ID, &mid.ID, "Leaf")
	a := e.mustUpload(d.ID, &mid.ID, "a.txt", "a")
	b := e.mustUpload(d.ID, &leaf.ID, "b.txt", "b")

	// b was deleted on its own earlier; restoring Top must not bring it back.
	require.NoError(t, tree.SoftDelete(e.ctx, d.ID, FileRef(b.ID)))
	e.clock.Advance(time.Minute)
	require.NoError(t, tree.SoftDelete(e.ctx, d.ID, FolderRef(top.ID)))

	for _, id := range []uuid.UUID{top.ID, mid.ID, leaf.ID} {
		assert.Equal(t, models.StateDeleted, e.folder(id).State)
	}
	assert.Equal(t, models.StateDeleted, e.file(a.ID).State)
	assert.True(t, e.folder(top.ID).DeletedAt.Equal(*e.file(a.ID).DeletedAt))

	root, err := tree.List(e.ctx, d.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, root.Folders)

	// Deleted nodes still count toward storage until purged.
	assert.Equal(t, int64(2), e.reload(d.ID).StorageUsed)

	require.NoError(t, tree.Restore(e.ctx, d.ID, FolderRef(top.ID)))
	for _, id := range []uuid.UUID{top.ID, mid.ID, leaf.ID} {
		assert.Equal(t, models.StateActive, e.folder(id).State)
		assert.Nil(t, e.folder(id).DeletedAt)
	}
	assert.Equal(t, models.StateActive, e.file(a.ID).State)
	assert.Equal(t, models.StateDeleted, e.file(b.ID).State)
}

func TestTree_RestoreConflicts(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	tree := e.svc.Tree

	old := e.mustFolder(d.ID, nil, "Notes")
	require.NoError(t, tree.SoftDelete(e.ctx, d.ID, FolderRef(old.ID)))
	e.mustFolder(d.ID, nil, "Notes")

	err := tree.Restore(e.ctx, d.ID, FolderRef(old.ID))
	requireCode(t, err, apperr.DuplicateFound)

	// A file whose folder is still deleted cannot come back on its own.
	parent := e.mustFolder(d.ID, nil, "Box")
	f := e.mustUpload(d.ID, &parent.ID, "item.txt", "x")
	require.NoError(t, tree.SoftDelete(e.ctx, d.ID, FolderRef(parent.ID)))
	err = tree.Restore(e.ctx, d.ID, FileRef(f.ID))
	requireCode(t, err, apperr.FolderNotFound)
}

func TestTree_MoveRejectsCycles(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	tree := e.svc.Tree

	a := e.mustFolder(d.ID, nil, "A")
	b := e.mustFolder(d.ID, &a.ID, "B")
	c := e.mustFolder(d.ID, &b.ID, "C")

	requireCode(t, tree.Move(e.ctx, d.ID, FolderRef(a.ID), &a.ID), apperr.InvalidInput)
	requireCode(t, tree.Move(e.ctx, d.ID, FolderRef(a.ID), &c.ID), apperr.InvalidInput)

	require.NoError(t, tree.Move(e.ctx, d.ID, FolderRef(c.ID), nil))
	assert.Equal(t, "C", e.folder(c.ID).Path)
	assert.Nil(t, e.folder(c.ID).ParentID)
}

func TestTree_MoveAndRenamePropagatePaths(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	tree := e.svc.Tree

	school := e.mustFolder(d.ID, nil, "School")
	year := e.mustFolder(d.ID, &school.ID, "2026")
	term := e.mustFolder(d.ID, &year.ID, "Spring")
	archive := e.mustFolder(d.ID, nil, "Archive")
	f := e.mustUpload(d.ID, &term.ID, "essay.txt", "words")

	require.NoError(t, tree.Move(e.ctx, d.ID, FolderRef(year.ID), &archive.ID))
	assert.Equal(t, "Archive/2026", e.folder(year.ID).Path)
	assert.Equal(t, "Archive/2026/Spring", e.folder(term.ID).Path)

	require.NoError(t, tree.Rename(e.ctx, d.ID, FolderRef(archive.ID), "Old"))
	assert.Equal(t, "Old/2026/Spring", e.folder(term.ID).Path)

	p, err := tree.MaterializePath(e.ctx, FileRef(f.ID))
	require.NoError(t, err)
	assert.Equal(t, "Old/2026/Spring/essay.txt", p)

	require.NoError(t, tree.Rename(e.ctx, d.ID, FileRef(f.ID), "final.txt"))
	p, err = tree.MaterializePath(e.ctx, FileRef(f.ID))
	require.NoError(t, err)
	assert.Equal(t, "Old/2026/Spring/final.txt", p)

	// Moving a file next to a same-named sibling is refused.
	_, err = e.svc.Upload(e.ctx, UploadInput{
		DriveID: d.ID,
		Name:    "final.txt",
		Content: strings.NewReader("other words"),
		Policy:  PolicyAllow,
	})
	require.NoError(t, err)
	requireCode(t, tree.Move(e.ctx, d.ID, FileRef(f.ID), nil), apperr.DuplicateFound)
}

func TestTree_MaterializePathIgnoresStoredPath(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	a := e.mustFolder(d.ID, nil, "A")
	b := e.mustFolder(d.ID, &a.ID, "B")

	require.NoError(t, e.db.Model(&models.Folder{}).Where("id = ?", b.ID).Update("path", "stale/value").Error)

	p, err := e.svc.Tree.MaterializePath(e.ctx, FolderRef(b.ID))
	require.NoError(t, err)
	assert.Equal(t, "A/B", p)

	fixed, err := e.svc.Tree.RepairPaths(e.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)
	assert.Equal(t, "A/B", e.folder(b.ID).Path)
}

func TestTree_ResolveFolderPath(t *testing.T) {
	e := newEnv(t)
	d := e.drive()
	a := e.mustFolder(d.ID, nil, "Courses")
	b := e.mustFolder(d.ID, &a.ID, "Physics")

	got, err := e.svc.Tree.ResolveFolderPath(e.ctx, d.ID, "Courses/Physics")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got, err = e.svc.Tree.ResolveFolderPath(e.ctx, d.ID, `Courses\Physics`)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = e.svc.Tree.ResolveFolderPath(e.ctx, d.ID, "Courses/Chemistry")
	requireCode(t, err, apperr.FolderNotFound)

	_, err = e.svc.Tree.ResolveFolderPath(e.ctx, d.ID, "../etc")
	requireCode(t, err, apperr.InvalidPath)

	require.NoError(t, e.svc.Tree.SoftDelete(e.ctx, d.ID, FolderRef(b.ID)))
	_, err = e.svc.Tree.ResolveFolderPath(e.ctx, d.ID, "Courses/Physics")
	requireCode(t, err, apperr.FolderNotFound)
}
