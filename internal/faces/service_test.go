package faces

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"face-auth-backend/internal/attempts"
	"face-auth-backend/internal/recognition"
	"face-auth-backend/internal/shared/storage/object"
)

func TestEnrollRejectsWrongCounts(t *testing.T) {
	for _, n := range []int{8, 10} {
		env := newTestEnv(t)
		_, err := env.svc.Enroll(context.Background(), "bob", enrollment(t, repeat(red, n)...))
		if !errors.Is(err, ErrCountMismatch) {
			t.Fatalf("%d images: expected ErrCountMismatch, got %v", n, err)
		}
		ok, err := env.svc.IsRegistered(context.Background(), "bob")
		if err != nil || ok {
			t.Fatalf("%d images: expected nothing stored, registered=%v err=%v", n, ok, err)
		}
	}
}

func TestEnrollStoresNineImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if ok, _ := env.svc.IsRegistered(ctx, "bob"); ok {
		t.Fatalf("expected bob unregistered before enrollment")
	}

	res, err := env.svc.Enroll(ctx, "bob", enrollment(t, repeat(red, RequiredImages)...))
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if len(res.ImageURLs) != RequiredImages {
		t.Fatalf("expected %d urls, got %d", RequiredImages, len(res.ImageURLs))
	}
	if _, err := os.Stat(filepath.Join(env.dir, "bob", "front_0.jpg")); err != nil {
		t.Fatalf("expected front_0 on disk: %v", err)
	}
	if ok, err := env.svc.IsRegistered(ctx, "bob"); err != nil || !ok {
		t.Fatalf("expected bob registered, got %v %v", ok, err)
	}
}

func TestEnrollDecodeFailureStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	images := enrollment(t, repeat(red, RequiredImages)...)
	images["left"][1] = "data:image/png;base64,bm90LWFuLWltYWdl"

	_, err := env.svc.Enroll(context.Background(), "bob", images)
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	refs, err := env.svc.Store.List(context.Background(), "bob")
	if err != nil || len(refs) != 0 {
		t.Fatalf("expected no stored images, got %d (%v)", len(refs), err)
	}
}

func TestEnrollUploadFailureIsUpstream(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Store = NewStore(failingStore{err: errStorageDown}, 0)

	_, err := env.svc.Enroll(context.Background(), "bob", enrollment(t, repeat(red, RequiredImages)...))
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, errStorageDown) {
		t.Fatalf("expected upstream storage error, got %v", err)
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Operation != "faces.enroll" || opErr.UserID != "bob" {
		t.Fatalf("expected OperationError for faces.enroll/bob, got %#v", err)
	}
}

func TestUserIDNormalizationSharesNamespace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.svc.Enroll(ctx, "Alice ", enrollment(t, repeat(red, RequiredImages)...)); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if ok, _ := env.svc.IsRegistered(ctx, "alice"); !ok {
		t.Fatalf("expected alice registered")
	}
	res, err := env.svc.Verify(ctx, "ALICE", dataURL(t, red))
	if err != nil || !res.Success {
		t.Fatalf("expected verification for ALICE, got %+v %v", res, err)
	}
}

func TestVerifyScenarios(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.Enroll(ctx, "bob", enrollment(t, repeat(red, RequiredImages)...)); err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	tests := []struct {
		name    string
		user    string
		payload string
		wantErr error
		matches int
	}{
		{name: "same face", user: "bob", payload: dataURL(t, red), matches: 9},
		{name: "different face", user: "bob", payload: dataURL(t, blue), wantErr: ErrInsufficientMatches},
		{name: "no face", user: "bob", payload: dataURL(t, black), wantErr: ErrNoFace},
		{name: "not registered", user: "carol", payload: dataURL(t, red), wantErr: ErrNotRegistered},
		{name: "corrupt probe", user: "bob", payload: "data:image/png;base64,!!!", wantErr: ErrDecode},
		{name: "missing user", user: "  ", payload: dataURL(t, red), wantErr: ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.svc.Verify(ctx, tt.user, tt.payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if res.Success {
					t.Fatalf("expected failure result")
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if !res.Success || res.Matches != tt.matches {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestVerifyMatchThreshold(t *testing.T) {
	tests := []struct {
		name    string
		reds    int
		success bool
	}{
		{name: "five of nine match", reds: 5, success: true},
		{name: "four of nine match", reds: 4, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			colors := append(repeat(red, tt.reds), repeat(blue, RequiredImages-tt.reds)...)
			if _, err := env.svc.Enroll(ctx, "bob", enrollment(t, colors...)); err != nil {
				t.Fatalf("Enroll: %v", err)
			}

			res, err := env.svc.Verify(ctx, "bob", dataURL(t, red))
			if res.Success != tt.success {
				t.Fatalf("expected success=%v, got %+v (%v)", tt.success, res, err)
			}
			if res.Matches != tt.reds || res.Processed != RequiredImages {
				t.Fatalf("unexpected counts %+v", res)
			}
			if !tt.success && !errors.Is(err, ErrInsufficientMatches) {
				t.Fatalf("expected ErrInsufficientMatches, got %v", err)
			}
		})
	}
}

func TestVerifySkipsCorruptStoredImages(t *testing.T) {
	tests := []struct {
		name    string
		corrupt int
		success bool
	}{
		{name: "four corrupt leaves five matches", corrupt: 4, success: true},
		{name: "five corrupt leaves four matches", corrupt: 5, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			if _, err := env.svc.Enroll(ctx, "bob", enrollment(t, repeat(red, RequiredImages)...)); err != nil {
				t.Fatalf("Enroll: %v", err)
			}
			refs, err := env.svc.Store.List(ctx, "bob")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			for _, ref := range refs[:tt.corrupt] {
				if err := os.WriteFile(filepath.Join(env.dir, filepath.FromSlash(ref.Key)), []byte("garbage"), 0o644); err != nil {
					t.Fatalf("corrupt %s: %v", ref.Key, err)
				}
			}

			res, err := env.svc.Verify(ctx, "bob", dataURL(t, red))
			if res.Success != tt.success {
				t.Fatalf("expected success=%v, got %+v (%v)", tt.success, res, err)
			}
			if res.Skipped != tt.corrupt || res.Processed != RequiredImages-tt.corrupt {
				t.Fatalf("unexpected counts %+v", res)
			}
		})
	}
}

// unreachableStore wraps a store and makes selected keys hang until the
// fetch context ends or fail outright.
type unreachableStore struct {
	object.ObjectStore
	hang map[string]bool
	fail map[string]bool
}

func (s unreachableStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	switch {
	case s.hang[key]:
		<-ctx.Done()
		return nil, ctx.Err()
	case s.fail[key]:
		return nil, errStorageDown
	}
	return s.ObjectStore.Open(ctx, key)
}

func TestVerifySkipsUnreachableStoredImages(t *testing.T) {
	tests := []struct {
		name    string
		hang    int
		fail    int
		success bool
	}{
		{name: "two hang one fails leaves six matches", hang: 2, fail: 1, success: true},
		{name: "three hang two fail leaves four matches", hang: 3, fail: 2, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			if _, err := env.svc.Enroll(ctx, "bob", enrollment(t, repeat(red, RequiredImages)...)); err != nil {
				t.Fatalf("Enroll: %v", err)
			}
			refs, err := env.svc.Store.List(ctx, "bob")
			if err != nil {
				t.Fatalf("List: %v", err)
			}

			flaky := unreachableStore{ObjectStore: env.svc.Store.Objects, hang: map[string]bool{}, fail: map[string]bool{}}
			for _, ref := range refs[:tt.hang] {
				flaky.hang[ref.Key] = true
			}
			for _, ref := range refs[tt.hang : tt.hang+tt.fail] {
				flaky.fail[ref.Key] = true
			}
			env.svc.Store = NewStore(flaky, 50*time.Millisecond)

			start := time.Now()
			res, err := env.svc.Verify(ctx, "bob", dataURL(t, red))
			if elapsed := time.Since(start); elapsed > 5*time.Second {
				t.Fatalf("verification not bounded by fetch timeout: %s", elapsed)
			}
			if res.Success != tt.success {
				t.Fatalf("expected success=%v, got %+v (%v)", tt.success, res, err)
			}
			unreachable := tt.hang + tt.fail
			if res.Skipped != unreachable || res.Processed != RequiredImages-unreachable || res.Matches != RequiredImages-unreachable {
				t.Fatalf("unexpected counts %+v", res)
			}
			if !tt.success && !errors.Is(err, ErrInsufficientMatches) {
				t.Fatalf("expected ErrInsufficientMatches, got %v", err)
			}
		})
	}
}

func TestVerifyRecognizerFailureIsUpstream(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.Enroll(ctx, "bob", enrollment(t, repeat(red, RequiredImages)...)); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	env.svc.Recognizer = colorRecognizer{err: errors.New("sidecar unreachable")}

	_, err := env.svc.Verify(ctx, "bob", dataURL(t, red))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestVerifyListFailureIsUpstream(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Store = NewStore(failingStore{err: errStorageDown}, 0)

	_, err := env.svc.Verify(context.Background(), "bob", dataURL(t, red))
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, errStorageDown) {
		t.Fatalf("expected upstream storage error, got %v", err)
	}
}

type panicRecognizer struct{}

func (panicRecognizer) Encode(context.Context, []byte) ([]recognition.Descriptor, error) {
	panic("detector crashed")
}

func (panicRecognizer) Close() error { return nil }

func TestVerifyRecoversFromPanic(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Recognizer = panicRecognizer{}

	res, err := env.svc.Verify(context.Background(), "bob", dataURL(t, red))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if res.Success || res.UserID != "bob" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAttemptsAreRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.Enroll(ctx, "bob", enrollment(t, repeat(red, RequiredImages)...)); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := env.svc.Verify(ctx, "bob", dataURL(t, blue)); err == nil {
		t.Fatalf("expected blue probe to fail")
	}

	list, err := env.svc.History(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two attempts, got %d", len(list))
	}
	kinds := map[attempts.Kind]bool{}
	for _, a := range list {
		kinds[a.Kind] = true
		if a.ID == "" || a.CreatedAt.IsZero() {
			t.Fatalf("attempt missing id or timestamp: %+v", a)
		}
		if a.Kind == attempts.KindVerify && (a.Success || a.Processed != RequiredImages || a.Message != ErrInsufficientMatches.Error()) {
			t.Fatalf("unexpected verify attempt %+v", a)
		}
	}
	if !kinds[attempts.KindEnroll] || !kinds[attempts.KindVerify] {
		t.Fatalf("expected enroll and verify attempts, got %+v", list)
	}
}

func TestAttemptMessageHidesUpstreamDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.svc.Store = NewStore(failingStore{err: errors.New("put s3://faces/face_auth/bob/front_0: access denied")}, 0)

	if _, err := env.svc.Enroll(ctx, "bob", enrollment(t, repeat(red, RequiredImages)...)); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if _, err := env.svc.Verify(ctx, "bob", dataURL(t, red)); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	list, err := env.svc.History(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected two attempts, got %d", len(list))
	}
	for _, a := range list {
		if a.Message != ErrUpstream.Error() {
			t.Fatalf("expected %q, got %q", ErrUpstream.Error(), a.Message)
		}
	}
}

func TestAttemptMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "success", err: nil, want: ""},
		{name: "decode", err: opError("faces.verify", "bob", fmt.Errorf("image front_0: %w: unexpected EOF", ErrDecode)), want: ErrDecode.Error()},
		{name: "threshold", err: fmt.Errorf("%w: 4 of 5", ErrInsufficientMatches), want: ErrInsufficientMatches.Error()},
		{name: "upstream wins", err: upstream(fmt.Errorf("encode: %w", ErrDecode)), want: ErrUpstream.Error()},
		{name: "unknown", err: errors.New("bucket faces unreachable"), want: ErrUpstream.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := attemptMessage(tt.err); got != tt.want {
				t.Fatalf("attemptMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHistoryWithoutRepoIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Attempts = nil

	list, err := env.svc.History(context.Background(), "bob", 5)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty history, got %v %v", list, err)
	}
}
