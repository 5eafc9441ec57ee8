package session

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/vvuk/cassini/sdcp"
)

// validExtensions is a warning-only check: an unknown extension just flags
// a file the printer probably won't recognize, it never rejects the upload.
var validExtensions = map[string]bool{"ctb": true, "goo": true}

// Upload registers an HTTP route for file, issues UPLOAD_FILE, and returns
// a channel of Progress emissions. The channel is closed when the transfer
// finishes (success or failure); if startPrinting is true and the upload
// succeeded, Print is issued automatically once the channel closes.
func (s *Session) Upload(ctx context.Context, file string, startPrinting bool) (<-chan Progress, error) {
	basename := filepath.Base(file)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(basename), "."))
	if !validExtensions[ext] {
		s.warnf("upload: unrecognized extension %q for %s", ext, basename)
	}

	path := "/" + sdcp.RequestID() + "." + ext
	route, err := s.http.RegisterFile(path, file)
	if err != nil {
		return nil, fmt.Errorf("session: registering upload route: %w", err)
	}

	ch := make(chan Progress, 4)
	upload := &uploadState{
		path:          path,
		filename:      basename,
		ch:            ch,
		startPrinting: startPrinting,
		printCtx:      ctx,
		activity:      make(chan struct{}, 1),
	}

	s.mu.Lock()
	s.currentUpload = upload
	s.state = StateUploading
	s.mu.Unlock()

	url := fmt.Sprintf("http://${ipaddr}:%d%s", s.httpPort, path)
	payload := sdcp.UploadFileData{
		Check:      0,
		CleanCache: 1,
		Compress:   0,
		FileSize:   route.Size,
		Filename:   basename,
		MD5:        route.MD5,
		URL:        url,
	}

	if _, err := s.Submit(ctx, sdcp.UploadFile, payload); err != nil {
		s.mu.Lock()
		s.currentUpload = nil
		s.mu.Unlock()
		s.http.Unregister(path)
		close(ch)
		return nil, fmt.Errorf("session: UPLOAD_FILE: %w", err)
	}

	go s.watchUpload(upload)
	return ch, nil
}

// watchUpload fails an upload whose status pushes stop arriving. The
// steady-state bound is twice the session timeout to accommodate printer
// think-time between pushes.
func (s *Session) watchUpload(upload *uploadState) {
	limit := 2 * s.getTimeout()
	timer := time.NewTimer(limit)
	defer timer.Stop()

	for {
		select {
		case <-upload.activity:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(limit)
		case <-timer.C:
			s.mu.Lock()
			active := s.currentUpload == upload
			s.mu.Unlock()
			if !active {
				return
			}
			s.warnf("upload %s: no status push within %v", upload.filename, limit)
			s.finishUpload(upload, Progress{Offset: -1, Total: -1, Filename: upload.filename}, false)
			s.setState(StateFailed)
			return
		}

		s.mu.Lock()
		active := s.currentUpload == upload
		s.mu.Unlock()
		if !active {
			return
		}
	}
}

// printAfterUpload issues Print once an upload has finished successfully.
// It never reads from the upload's progress channel itself — that channel
// belongs exclusively to Upload's caller — finishUpload calls this after
// it has already sent the final emission.
func (s *Session) printAfterUpload(ctx context.Context, filename string) {
	if _, err := s.Print(ctx, filename); err != nil {
		s.warnf("print-after-upload: %v", err)
	}
}

// progressFromStatus advances the upload state machine on one status push:
// BUSY emits an in-flight offset, READY+DONE finishes successfully with the
// final offset, READY with anything else finishes with the error sentinel.
func (s *Session) progressFromStatus(upload *uploadState, status sdcp.StatusSnapshot) {
	fti := status.FileTransferInfo

	select {
	case upload.activity <- struct{}{}:
	default:
	}

	switch {
	case status.CurrentStatus == sdcp.StatusReady && fti.Status == sdcp.TransferDone:
		s.setState(StateReady)
		s.finishUpload(upload, Progress{Offset: fti.FileTotalSize, Total: fti.FileTotalSize, Filename: upload.filename}, true)
	case status.CurrentStatus == sdcp.StatusReady:
		s.setState(StateFailed)
		s.finishUpload(upload, Progress{Offset: -1, Total: fti.FileTotalSize, Filename: upload.filename}, false)
	case status.CurrentStatus == sdcp.StatusBusy:
		// Emitting under the lock keeps this send ordered against a
		// concurrent finishUpload (from the watchdog): once the slot is
		// cleared nobody else touches the channel, so close is safe.
		s.mu.Lock()
		if s.currentUpload == upload {
			select {
			case upload.ch <- Progress{Offset: fti.DownloadOffset, Total: fti.FileTotalSize, Filename: upload.filename}:
			default:
				// A slow consumer must not block status dispatch; the
				// final emission always gets through because finishUpload
				// clears the slot first.
			}
		}
		s.mu.Unlock()
	}
}

// finishUpload emits the final progress tuple, closes the stream, and
// unregisters the HTTP route. The currentUpload guard makes it safe for
// the dispatch path and the watchdog to race to finish the same upload:
// whichever clears the slot first wins, the other is a no-op.
func (s *Session) finishUpload(upload *uploadState, final Progress, succeeded bool) {
	s.mu.Lock()
	active := s.currentUpload == upload
	if active {
		s.currentUpload = nil
	}
	s.mu.Unlock()
	if !active {
		return
	}

	upload.ch <- final
	close(upload.ch)
	s.http.Unregister(upload.path)

	if succeeded && upload.startPrinting {
		go s.printAfterUpload(upload.printCtx, upload.filename)
	}
}

func (s *Session) warnf(format string, args ...any) {
	log.Printf("session %s: "+format, append([]any{s.mainboard()}, args...)...)
}
