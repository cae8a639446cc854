// Package container packs and unpacks the .twff document container.
//
// A container is a ZIP archive with fixed entry paths: the final content,
// the process log, and optional assets, chat transcript, and signatures.
// Packing is deterministic: the same logical input yields a byte-identical
// archive, so whole containers can be hashed reproducibly, not just their
// logs.
package container

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"

	"twff/internal/schema"
	"twff/internal/session"
)

// Fixed entry paths of the container layout (format version 0.1).
const (
	ContentPath    = "content/document.xhtml"
	ProcessLogPath = "meta/process-log.json"
	ChatPath       = "meta/chat-transcript.json"
	SignaturesPath = "META-INF/signatures.xml"
	ImagesPrefix   = "content/images/"
	AssetsPrefix   = "content/assets/"
)

// Structural errors. These abort the operation; nothing partial is
// returned.
var (
	// ErrMalformedArchive indicates bytes that cannot be opened as a ZIP
	// archive.
	ErrMalformedArchive = errors.New("container: malformed archive")

	// ErrInvalidJSON indicates a process-log entry that does not parse.
	ErrInvalidJSON = errors.New("container: process log is not valid JSON")
)

// MissingEntryError reports an absent required entry.
type MissingEntryError struct {
	Name string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("container: missing required entry %q", e.Name)
}

// InvalidSessionError reports a session that failed schema validation
// during packing.
type InvalidSessionError struct {
	Violations []schema.Violation
}

func (e *InvalidSessionError) Error() string {
	return fmt.Sprintf("container: session failed schema validation (%d violations)",
		len(e.Violations))
}

// Archive is the logical content of a container.
type Archive struct {
	Content    []byte
	Session    *session.Session
	Chat       []byte
	Signatures []byte
	// RawLog holds the process-log entry verbatim as unpacked, so callers
	// can schema-validate the stored document rather than a re-encoding.
	// Nil for archives assembled in memory.
	RawLog []byte
	// Assets maps full container paths (under content/images/ or
	// content/assets/) to file bytes.
	Assets map[string][]byte
}

// Archive entries carry a fixed modification time so identical input packs
// to identical bytes. ZIP cannot represent times before 1980.
var entryEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Pack serializes an archive. The session is schema-validated first;
// packing fails with InvalidSessionError if it does not conform.
func Pack(a *Archive, v *schema.Validator) ([]byte, error) {
	logBytes, err := a.Session.Encode()
	if err != nil {
		return nil, err
	}
	violations, err := v.Validate(logBytes)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &InvalidSessionError{Violations: violations}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	write := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: entryEpoch,
		})
		if err != nil {
			return fmt.Errorf("container: create %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("container: write %s: %w", name, err)
		}
		return nil
	}

	if err := write(ContentPath, a.Content); err != nil {
		return nil, err
	}
	for _, name := range sortedAssetNames(a.Assets) {
		if err := write(name, a.Assets[name]); err != nil {
			return nil, err
		}
	}
	if err := write(ProcessLogPath, logBytes); err != nil {
		return nil, err
	}
	if a.Chat != nil {
		if err := write(ChatPath, a.Chat); err != nil {
			return nil, err
		}
	}
	if a.Signatures != nil {
		if err := write(SignaturesPath, a.Signatures); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("container: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

func sortedAssetNames(assets map[string][]byte) []string {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unpack parses container bytes. It fails with ErrMalformedArchive for
// unreadable archives, MissingEntryError for an absent required entry, and
// ErrInvalidJSON for an unparsable process log. The chain is not verified
// here; that is a distinct, explicit step.
func Unpack(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrMalformedArchive, f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrMalformedArchive, f.Name, err)
		}
		entries[f.Name] = content
	}

	contentBytes, ok := entries[ContentPath]
	if !ok {
		return nil, &MissingEntryError{Name: ContentPath}
	}
	logBytes, ok := entries[ProcessLogPath]
	if !ok {
		return nil, &MissingEntryError{Name: ProcessLogPath}
	}

	sess, err := session.Decode(logBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	a := &Archive{
		Content:    contentBytes,
		Session:    sess,
		Chat:       entries[ChatPath],
		Signatures: entries[SignaturesPath],
		RawLog:     logBytes,
	}
	for name, content := range entries {
		if strings.HasPrefix(name, ImagesPrefix) || strings.HasPrefix(name, AssetsPrefix) {
			if a.Assets == nil {
				a.Assets = make(map[string][]byte)
			}
			a.Assets[name] = content
		}
	}
	return a, nil
}
