package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/socialboard/internal/model"
)

// PostgresPostRepoはPostRepositoryインターフェースを満たすことを検証
func TestPostgresPostRepo_ImplementsInterface(t *testing.T) {
	var _ PostRepository = (*PostgresPostRepo)(nil)
}

func TestEncodeDecodeComments_PreservesOrderAndFields(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 123_000_000, time.UTC)
	in := []model.Comment{
		{ID: uuid.NewString(), UserID: "u1", Text: "first", CreatedAt: at},
		{ID: uuid.NewString(), UserID: "u2", Text: "second", CreatedAt: at.Add(time.Second)},
	}

	raw, err := encodeComments(in)
	if err != nil {
		t.Fatalf("encodeComments: %v", err)
	}
	out, err := decodeComments(raw)
	if err != nil {
		t.Fatalf("decodeComments: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	for i := range in {
		if out[i].ID != in[i].ID || out[i].Text != in[i].Text || !out[i].CreatedAt.Equal(in[i].CreatedAt) {
			t.Errorf("comment[%d] = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestEncodeComments_EmptyIsJSONArray(t *testing.T) {
	raw, err := encodeComments(nil)
	if err != nil {
		t.Fatalf("encodeComments: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("encodeComments(nil) = %s, want []", raw)
	}
}

func TestDecodeComments_Malformed_ReturnsError(t *testing.T) {
	if _, err := decodeComments([]byte(`{"id":1}`)); err == nil {
		t.Error("expected error for non-array comments")
	}
}

func TestScanPost_ConvertsColumns(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600))
	row := fakeRow{values: []any{
		"post-1", "author-1", "hello",
		[]byte(`{u1,u2}`),
		[]byte(`[{"id":"c1","user_id":"u1","comment":"hi","created_at":"2024-01-02T00:00:00Z"}]`),
		created, created,
	}}

	post, err := scanPost(row)
	if err != nil {
		t.Fatalf("scanPost: %v", err)
	}
	if len(post.Likes) != 2 || post.Likes[1] != "u2" {
		t.Errorf("Likes = %v, want [u1 u2]", post.Likes)
	}
	if len(post.Comments) != 1 || post.Comments[0].Text != "hi" {
		t.Errorf("Comments = %+v", post.Comments)
	}
	if post.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", post.CreatedAt.Location())
	}
}

// fakeRow はrowScannerのテスト用実装。
type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			*p = r.values[i].([]byte)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case sql.Scanner:
			if err := p.Scan(r.values[i]); err != nil {
				return err
			}
		}
	}
	return nil
}
