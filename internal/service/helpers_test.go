package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"inmuebles_backend/pkg/email"
)

// fakeStorage records puts and deletes in memory.
type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	failPut    bool
	failDelete bool
	onDelete   func(key string)
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (f *fakeStorage) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return "", errors.New("bucket unavailable")
	}
	f.objects[key] = body
	return "https://cdn.test/" + key, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	if f.onDelete != nil {
		f.onDelete(key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	if f.failDelete {
		return errors.New("bucket unavailable")
	}
	delete(f.objects, key)
	return nil
}

type optionsSpy struct{ clears int }

func (o *optionsSpy) ClearOptionsCache(context.Context) error {
	o.clears++
	return nil
}

type notifierSpy struct {
	to   []string
	data []email.LeadNotificationData
	err  error
}

func (n *notifierSpy) SendLeadNotificationEmail(_ context.Context, to string, data email.LeadNotificationData) error {
	n.to = append(n.to, to)
	n.data = append(n.data, data)
	return n.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uploads builds file headers the way Fiber hands them to handlers.
func uploads(t *testing.T, files map[string][]byte, order ...string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range order {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["images"]
}
