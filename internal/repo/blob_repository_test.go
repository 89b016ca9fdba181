package repo

import (
	"KnowBase/internal/model"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestBlobRepository_CreateIfAbsent_Idempotent(t *testing.T) {
	db := newTestDB(t)
	r := NewBlobRepository(db)
	ctx := context.Background()

	// первая вставка — created=true
	created, err := r.CreateIfAbsent(ctx, &model.Blob{Path: "1/100.png", ContentType: "image/png", Size: 2, Data: []byte{1, 2}})
	assert.NoError(t, err)
	assert.True(t, created)

	// повторная — created=false, содержимое не перезаписано
	created, err = r.CreateIfAbsent(ctx, &model.Blob{Path: "1/100.png", ContentType: "image/gif", Size: 1, Data: []byte{9}})
	assert.NoError(t, err)
	assert.False(t, created)

	got, err := r.Get(ctx, "1/100.png")
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got.Data)
	assert.Equal(t, "image/png", got.ContentType)
}

func TestBlobRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	r := NewBlobRepository(db)
	ctx := context.Background()

	_, err := r.CreateIfAbsent(ctx, &model.Blob{Path: "2/1.txt", ContentType: "text/plain", Size: 1, Data: []byte("x")})
	assert.NoError(t, err)

	assert.NoError(t, r.Delete(ctx, "2/1.txt"))
	assert.ErrorIs(t, r.Delete(ctx, "2/1.txt"), gorm.ErrRecordNotFound)

	_, err = r.Get(ctx, "2/1.txt")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
