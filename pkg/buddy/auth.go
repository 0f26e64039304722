package buddy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oni-labs/go-buddy/pkg/capture"
	"github.com/oni-labs/go-buddy/pkg/gateway"
)

// ErrNoFaceSamples indicates a face enrollment run ended without the
// backend accepting a single sample, usually because no face was in
// frame.
var ErrNoFaceSamples = errors.New("buddy: no usable face samples")

// FaceLogin watches the camera until the backend recognizes an
// enrolled face. A frame with no match is not a failure; the loop
// keeps polling until a match arrives or ctx ends, so callers bound it
// with a deadline when they cannot wait forever.
func (w *Workflows) FaceLogin(ctx context.Context) (*gateway.FaceMatch, error) {
	stream, err := w.guard.Acquire(ctx, capture.Camera, capture.Constraints{})
	if err != nil {
		return nil, err
	}
	defer w.releaseCamera(stream)

	w.stage.ShowTopText("Looking for your face...")
	defer w.stage.ClearTopText()

	for {
		if cur, held := w.guard.Holder(capture.Camera); held {
			stream = cur
		}
		frame, err := captureFrame(ctx, stream)
		if err != nil {
			return nil, err
		}
		match, err := w.backend.RecognizeFace(ctx, frame)
		if err != nil {
			w.logger.Warn("face recognition failed", "error", err)
		} else if match.Recognized() {
			return match, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.loginPoll):
		}
	}
}

// RegisterUser creates an account, enrolls the user's face from a
// burst of camera samples, retrains the recognizer, and logs the new
// user in. The camera is released before the training call.
func (w *Workflows) RegisterUser(ctx context.Context, username, password string) (*gateway.SessionInfo, error) {
	if _, err := w.backend.CreateUser(ctx, username, password); err != nil {
		return nil, err
	}

	if err := w.enrollFace(ctx, username); err != nil {
		return nil, err
	}

	w.stage.ShowTopText("Training the recognizer...")
	defer w.stage.ClearTopText()
	if err := w.backend.TrainFaces(ctx); err != nil {
		return nil, err
	}
	return w.backend.Login(ctx, username, password)
}

// enrollFace captures face samples until the backend has stored the
// configured amount. The backend answers samples it could not use with
// a different message; those attempts do not count.
func (w *Workflows) enrollFace(ctx context.Context, username string) error {
	stream, err := w.guard.Acquire(ctx, capture.Camera, capture.Constraints{})
	if err != nil {
		return err
	}
	defer w.releaseCamera(stream)

	saved := 0
	for attempt := 0; attempt < w.faceSamples && saved < w.faceSamples; attempt++ {
		if cur, held := w.guard.Holder(capture.Camera); held {
			stream = cur
		}
		frame, err := captureFrame(ctx, stream)
		if err != nil {
			return err
		}
		sample, err := w.backend.RegisterFace(ctx, username, frame)
		if err != nil {
			return err
		}
		if sample.Saved() {
			saved++
			w.stage.ShowTopText(fmt.Sprintf("Capturing face samples... %d of %d", saved, w.faceSamples))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.sampleGap):
		}
	}
	if saved == 0 {
		return ErrNoFaceSamples
	}
	return nil
}
