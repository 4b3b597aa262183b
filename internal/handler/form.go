package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/hitoshi/socialboard/internal/avatar"
	"github.com/hitoshi/socialboard/internal/model"
)

const (
	// avatarFormField はアバター画像のmultipartフィールド名。
	avatarFormField = "avatar"

	// formOverhead はアバター以外のフォーム項目に許容するサイズ。
	formOverhead = 1 << 20

	// maxJSONBodySize はJSONリクエストボディの上限。
	maxJSONBodySize = 1 << 20
)

// formInput はmultipartまたはJSONのリクエストボディから読み取った入力。
type formInput struct {
	values map[string]string
	avatar *avatar.File
	file   multipart.File
}

// value は項目の値と、リクエストに含まれていたかどうかを返す。
func (f *formInput) value(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// optional は項目が含まれていればその値へのポインタを返す。
func (f *formInput) optional(key string) *string {
	if v, ok := f.values[key]; ok {
		return &v
	}
	return nil
}

// Close はアップロードされたファイルを閉じる。
func (f *formInput) Close() {
	if f.file != nil {
		f.file.Close()
	}
}

// readForm はContent-Typeに応じてmultipartフォームまたはJSONオブジェクトを読み取る。
// multipartの場合のみアバター画像を受け付ける。
func readForm(w http.ResponseWriter, r *http.Request, maxAvatarSize int64, keys ...string) (*formInput, error) {
	if maxAvatarSize <= 0 {
		maxAvatarSize = avatar.DefaultMaxSize
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipart(w, r, maxAvatarSize, keys)
	}
	return readJSON(w, r, keys)
}

func readMultipart(w http.ResponseWriter, r *http.Request, maxAvatarSize int64, keys []string) (*formInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, model.NewValidationError(
				fmt.Sprintf("Avatar is too large. Maximum %dMB allowed", maxAvatarSize/(1024*1024)))
		}
		return nil, model.NewValidationError("Invalid form data")
	}

	in := &formInput{values: make(map[string]string)}
	for _, key := range keys {
		if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
			in.values[key] = vs[0]
		}
	}

	file, header, err := r.FormFile(avatarFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		return nil, model.NewValidationError("Invalid avatar upload")
	}
	in.file = file
	in.avatar = &avatar.File{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}
	return in, nil
}

func readJSON(w http.ResponseWriter, r *http.Request, keys []string) (*formInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, model.NewValidationError("Invalid request body")
	}

	in := &formInput{values: make(map[string]string)}
	for _, key := range keys {
		msg, ok := raw[key]
		if !ok || string(msg) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return nil, model.NewValidationError(fmt.Sprintf("%s must be a string", key))
		}
		in.values[key] = s
	}
	return in, nil
}
