package script

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

const (
	artifactExt    = ".graftc"
	artifactHeader = "graftc 1"
)

// Artifact is the parsed content of a compiled artifact file.
type Artifact struct {
	Digest string
	Code   string
}

// Digest returns the hex sha256 of src as stored in artifacts.
func Digest(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

func writeArtifact(ctx context.Context, fs afs.Service, path string, src []byte, code string) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\nsha256 %s\n\n", artifactHeader, Digest(src))
	buf.WriteString(code)
	return fs.Upload(ctx, path, file.DefaultFileOsMode, &buf)
}

// ReadArtifact loads the artifact recorded for a unit.
func ReadArtifact(ctx context.Context, fs afs.Service, path string) (*Artifact, error) {
	data, err := fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	r := bufio.NewReader(bytes.NewReader(data))
	header, _ := r.ReadString('\n')
	if strings.TrimSpace(header) != artifactHeader {
		return nil, fmt.Errorf("artifact %s: unknown header %q", path, strings.TrimSpace(header))
	}
	digestLine, _ := r.ReadString('\n')
	digest, ok := strings.CutPrefix(strings.TrimSpace(digestLine), "sha256 ")
	if !ok {
		return nil, fmt.Errorf("artifact %s: missing digest", path)
	}
	if _, err := r.ReadString('\n'); err != nil {
		return nil, fmt.Errorf("artifact %s: truncated", path)
	}
	var code strings.Builder
	if _, err := r.WriteTo(&code); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return &Artifact{Digest: digest, Code: code.String()}, nil
}

// ArtifactFor reads the artifact of the unit named name.
func (l *Loader) ArtifactFor(ctx context.Context, name string) (*Artifact, error) {
	return ReadArtifact(ctx, l.fs, l.ArtifactPath(name))
}

// Fresh reports whether the artifact for name was compiled from the current
// source bytes, regardless of modification times.
func (l *Loader) Fresh(ctx context.Context, name string) (bool, error) {
	art, err := l.ArtifactFor(ctx, name)
	if err != nil {
		return false, err
	}
	src, err := l.fs.DownloadWithURL(ctx, l.SourcePath(name))
	if err != nil {
		return false, fmt.Errorf("read %s: %w", l.SourcePath(name), err)
	}
	return art.Digest == Digest(src), nil
}
