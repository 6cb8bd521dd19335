package sqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/resumatch/internal/apperror"
	"github.com/sakif/resumatch/internal/model"
	"github.com/sakif/resumatch/internal/repository"
)

func saveTestResume(t *testing.T, db *DB, userID int64, name string, data []byte) *model.Resume {
	t.Helper()
	r := &model.Resume{UserID: userID, FileName: name, FileData: data}
	if _, err := db.SaveResume(context.Background(), r); err != nil {
		t.Fatalf("failed to save test resume: %v", err)
	}
	return r
}

// =========================================================================
// SAVE TESTS
// =========================================================================

func TestSaveResume(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@x.com")

	r := &model.Resume{UserID: user.ID, FileName: "r.pdf", FileData: []byte("%PDF-1.4 B")}
	inserted, err := db.SaveResume(context.Background(), r)

	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotZero(t, r.ID)
	assert.False(t, r.UploadedAt.IsZero())
}

// Uploading the same bytes under the same name twice stores one row.
func TestSaveResume_DedupIdenticalUpload(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@x.com")
	data := []byte("%PDF-1.4 B")

	first := &model.Resume{UserID: user.ID, FileName: "r.pdf", FileData: data}
	inserted, err := db.SaveResume(context.Background(), first)
	require.NoError(t, err)
	require.True(t, inserted)

	second := &model.Resume{UserID: user.ID, FileName: "r.pdf", FileData: bytes.Clone(data)}
	inserted, err = db.SaveResume(context.Background(), second)
	require.NoError(t, err)

	assert.False(t, inserted, "second identical upload should be skipped")
	assert.Equal(t, first.ID, second.ID, "duplicate should report the existing row")
	assert.Equal(t, 1, countRows(t, db, "resumes"))
}

func TestSaveResume_DifferentNameOrBytesOrOwnerIsNotDuplicate(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@x.com")
	bob := createTestUser(t, db, "bob@x.com")

	saveTestResume(t, db, alice.ID, "r.pdf", []byte("B"))

	cases := []struct {
		name   string
		resume *model.Resume
	}{
		{"different file name", &model.Resume{UserID: alice.ID, FileName: "other.pdf", FileData: []byte("B")}},
		{"different bytes", &model.Resume{UserID: alice.ID, FileName: "r.pdf", FileData: []byte("C")}},
		{"different owner", &model.Resume{UserID: bob.ID, FileName: "r.pdf", FileData: []byte("B")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inserted, err := db.SaveResume(context.Background(), tc.resume)
			require.NoError(t, err)
			assert.True(t, inserted)
		})
	}

	assert.Equal(t, 4, countRows(t, db, "resumes"))
}

func TestSaveResume_UnknownUserViolatesForeignKey(t *testing.T) {
	db := newTestDB(t)

	_, err := db.SaveResume(context.Background(), &model.Resume{UserID: 999, FileName: "r.pdf", FileData: []byte("B")})
	assert.Error(t, err)
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListResumes_Empty(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@x.com")

	list, err := db.ListResumes(context.Background(), user.ID, repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

// 15 uploads paged with limit 10: 10 then 5, no overlap, insertion order.
func TestListResumes_Pagination(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@x.com")

	var ids []int64
	for i := 0; i < 15; i++ {
		r := saveTestResume(t, db, user.ID, fmt.Sprintf("r%02d.pdf", i), []byte{byte(i)})
		ids = append(ids, r.ID)
	}

	page1, err := db.ListResumes(context.Background(), user.ID, repository.ListOptions{Limit: 10, Offset: 0})
	require.NoError(t, err)
	page2, err := db.ListResumes(context.Background(), user.ID, repository.ListOptions{Limit: 10, Offset: 10})
	require.NoError(t, err)
	page3, err := db.ListResumes(context.Background(), user.ID, repository.ListOptions{Limit: 10, Offset: 20})
	require.NoError(t, err)

	assert.Len(t, page1, 10)
	assert.Len(t, page2, 5)
	assert.Empty(t, page3)

	var got []int64
	for _, s := range append(page1, page2...) {
		got = append(got, s.ID)
	}
	assert.Equal(t, ids, got, "pages should cover every row once, in insertion order")
	assert.Equal(t, "r00.pdf", page1[0].FileName)
	assert.False(t, page1[0].UploadedAt.IsZero())
}

func TestListResumes_OnlyOwnersRows(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice@x.com")
	bob := createTestUser(t, db, "bob@x.com")

	saveTestResume(t, db, alice.ID, "alice.pdf", []byte("A"))
	saveTestResume(t, db, bob.ID, "bob.pdf", []byte("B"))

	list, err := db.ListResumes(context.Background(), alice.ID, repository.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "alice.pdf", list[0].FileName)
}

func TestListResumes_ClampsLimitAndOffset(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@x.com")
	for i := 0; i < 12; i++ {
		saveTestResume(t, db, user.ID, fmt.Sprintf("r%d.pdf", i), []byte{byte(i)})
	}

	list, err := db.ListResumes(context.Background(), user.ID, repository.ListOptions{Limit: 0, Offset: -5})
	require.NoError(t, err)
	assert.Len(t, list, defaultListLimit)
}

// =========================================================================
// GET / DELETE TESTS
// =========================================================================

func TestGetResume(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@x.com")
	saved := saveTestResume(t, db, user.ID, "r.pdf", []byte("%PDF bytes"))

	found, err := db.GetResume(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "r.pdf", found.FileName)
	assert.Equal(t, []byte("%PDF bytes"), found.FileData)
	assert.Equal(t, user.ID, found.UserID)
}

func TestGetResume_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetResume(context.Background(), 12345)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetResume() error = %v, want ErrNotFound", err)
	}
}

func TestDeleteResume_IsFinal(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@x.com")
	saved := saveTestResume(t, db, user.ID, "r.pdf", []byte("B"))

	require.NoError(t, db.DeleteResume(context.Background(), saved.ID))

	_, err := db.GetResume(context.Background(), saved.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeleteResume_MissingIDIsNotAnError(t *testing.T) {
	db := newTestDB(t)

	assert.NoError(t, db.DeleteResume(context.Background(), 777))
}

// After a delete the same upload is accepted again as a new row.
func TestDeleteResume_AllowsReupload(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "a@x.com")
	saved := saveTestResume(t, db, user.ID, "r.pdf", []byte("B"))
	require.NoError(t, db.DeleteResume(context.Background(), saved.ID))

	again := &model.Resume{UserID: user.ID, FileName: "r.pdf", FileData: []byte("B")}
	inserted, err := db.SaveResume(context.Background(), again)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEqual(t, saved.ID, again.ID)
}
