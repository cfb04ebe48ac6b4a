package media

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"notefiber-editor/pkg/command"
	"notefiber-editor/pkg/document"
)

const moduleName = "MEDIA"

var (
	ErrClosed             = errors.New("media: reconciler closed")
	ErrUnknownPlaceholder = errors.New("media: no failed upload for reference")
	ErrBlobExpired        = errors.New("media: file bytes for reference expired")
	ErrTooLarge           = errors.New("media: file exceeds upload limit")
)

// Logger is the subset of the application logger the reconciler writes to.
type Logger interface {
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}

// Placeholder describes a void block waiting for its upload.
type Placeholder struct {
	Kind     document.BlockType `json:"kind"`
	LocalRef string             `json:"localRef"`
	FileName string             `json:"fileName"`
	Error    string             `json:"error,omitempty"`
	FailedAt time.Time          `json:"failedAt,omitempty"`
}

// Reconciler owns the uploads started from one editor session. Closing it cancels
// uploads still in flight; their results are discarded without touching the document.
type Reconciler struct {
	editor   *document.Editor
	storage  Storage
	blobs    *BlobCache
	notifier command.Notifier
	logger   Logger
	scope    string
	timeout  time.Duration
	maxBytes int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	failed map[string]Placeholder
}

type Option func(*Reconciler)

func WithNotifier(n command.Notifier) Option {
	return func(r *Reconciler) { r.notifier = n }
}

func WithLogger(l Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// WithScope sets the storage scope uploads are grouped under.
func WithScope(scope string) Option {
	return func(r *Reconciler) { r.scope = scope }
}

// WithUploadTimeout bounds each upload attempt. Zero leaves it to the storage backend.
func WithUploadTimeout(d time.Duration) Option {
	return func(r *Reconciler) { r.timeout = d }
}

func WithMaxBytes(n int) Option {
	return func(r *Reconciler) { r.maxBytes = n }
}

func WithBlobCache(c *BlobCache) Option {
	return func(r *Reconciler) { r.blobs = c }
}

func NewReconciler(editor *document.Editor, storage Storage, opts ...Option) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reconciler{
		editor:   editor,
		storage:  storage,
		notifier: command.NotifierFunc(func(command.Notification) {}),
		logger:   nopLogger{},
		ctx:      ctx,
		cancel:   cancel,
		failed:   make(map[string]Placeholder),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.blobs == nil {
		r.blobs = NewBlobCache(time.Hour)
	}
	return r
}

// Insert puts a placeholder for f into the document at the selection and starts its
// upload. An empty kind is inferred from the content type. The returned local
// reference is the placeholder's URL until the upload lands.
func (r *Reconciler) Insert(kind document.BlockType, f File, attrs ...document.Attr) (string, error) {
	if kind == "" {
		kind = KindOf(f.ContentType)
	}
	if !kind.IsMedia() {
		return "", document.ErrBadType
	}
	if r.maxBytes > 0 && len(f.Data) > r.maxBytes {
		return "", ErrTooLarge
	}

	if r.isClosed() {
		return "", ErrClosed
	}

	ref := r.blobs.Put(f)
	node := document.NewVoid(kind)
	if kind == document.TypeFile {
		node.FileName, node.FileType = f.Name, f.ContentType
	}
	for _, a := range attrs {
		a(node)
	}
	node.URL = ref

	if _, err := r.editor.InsertVoid(node); err != nil {
		r.blobs.Delete(ref)
		return "", err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.editor.RemoveVoid(kind, ref)
		r.blobs.Delete(ref)
		return "", ErrClosed
	}
	r.start(kind, ref, f)
	r.mu.Unlock()
	return ref, nil
}

func (r *Reconciler) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Drop inserts every file of a paste or drop payload in order.
func (r *Reconciler) Drop(files []File) ([]string, error) {
	refs := make([]string, 0, len(files))
	for _, f := range files {
		ref, err := r.Insert("", f)
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Retry restarts a failed upload from the cached file bytes.
func (r *Reconciler) Retry(ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	p, ok := r.failed[ref]
	if !ok {
		return ErrUnknownPlaceholder
	}
	f, ok := r.blobs.Get(ref)
	if !ok {
		return ErrBlobExpired
	}
	delete(r.failed, ref)
	r.start(p.Kind, ref, f)
	return nil
}

// Failed lists placeholders whose last upload attempt failed, oldest first.
func (r *Reconciler) Failed() []Placeholder {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Placeholder, 0, len(r.failed))
	for _, p := range r.failed {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FailedAt.Before(out[j].FailedAt) })
	return out
}

// Wait blocks until every started upload has finished.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

// Close cancels pending uploads and waits for their goroutines to return. Results
// arriving after Close are dropped.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

// start must be called with r.mu held.
func (r *Reconciler) start(kind document.BlockType, ref string, f File) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.upload(kind, ref, f)
	}()
}

func (r *Reconciler) upload(kind document.BlockType, ref string, f File) {
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.storage.Upload(ctx, f, r.scope)

	r.mu.Lock()
	if r.closed || r.ctx.Err() != nil {
		r.mu.Unlock()
		return
	}
	if err != nil {
		p := Placeholder{Kind: kind, LocalRef: ref, FileName: f.Name, Error: err.Error(), FailedAt: time.Now()}
		r.failed[ref] = p
		r.mu.Unlock()

		r.logger.Error(moduleName, "Upload failed", map[string]interface{}{
			"kind":  string(kind),
			"ref":   ref,
			"file":  f.Name,
			"error": err.Error(),
		})
		r.notifier.Notify(command.MediaUploadFailed{Kind: kind, LocalRef: ref, Error: err.Error()})
		return
	}
	r.mu.Unlock()

	if !r.editor.Reconcile(kind, ref, res.URL) {
		r.logger.Warn(moduleName, "Placeholder removed before upload finished", map[string]interface{}{
			"kind": string(kind),
			"ref":  ref,
			"url":  res.URL,
		})
	} else {
		r.logger.Info(moduleName, "Placeholder reconciled", map[string]interface{}{
			"kind": string(kind),
			"ref":  ref,
			"url":  res.URL,
		})
	}
	r.blobs.Delete(ref)
	r.notifier.Notify(command.MediaUploaded{Kind: kind, LocalRef: ref, URL: res.URL})
}
