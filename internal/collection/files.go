package collection

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/handiism/moviedata/internal/codec"
	ioutils "github.com/handiism/moviedata/internal/io"
)

// ErrNoFilename is returned by Save and Load when neither a path nor a
// current filename is available.
var ErrNoFilename = errors.New("no filename given")

// Save writes the movies to path, or to the current filename when path is
// empty, in the format selected by the file extension. On success the
// container becomes clean, path becomes the current filename and a status
// line is returned.
//
// The file is encoded in memory and then replaced atomically, so a failed
// save never leaves a truncated file behind.
func (c *Container) Save(path string) (string, error) {
	if path == "" {
		path = c.filename
	}
	if path == "" {
		return c.fail("save", path, ErrNoFilename)
	}
	cd, err := c.registry.Lookup(path)
	if err != nil {
		return c.fail("save", path, err)
	}
	if err := c.write(cd, path); err != nil {
		return c.fail("save", path, err)
	}

	c.filename = path
	c.dirty = false
	return c.done("save", path, "Saved %d movie records to %s"), nil
}

// Load replaces the movies with the contents of path, or of the current
// filename when path is empty. The format is selected by the file extension.
//
// The whole file is decoded before the container is touched. If the file
// cannot be opened the container is left as it was; if it opens but cannot
// be decoded the container is cleared but keeps its filename.
func (c *Container) Load(path string) (string, error) {
	if path == "" {
		path = c.filename
	}
	if path == "" {
		return c.fail("load", path, ErrNoFilename)
	}
	cd, err := c.registry.Lookup(path)
	if err != nil {
		return c.fail("load", path, err)
	}
	if err := c.read(cd, path); err != nil {
		return c.fail("load", path, err)
	}

	c.filename = path
	c.dirty = false
	return c.done("load", path, "Loaded %d movie records from %s"), nil
}

// ExportXML writes the movies to path in the XML interchange format. An
// empty path means the current filename with its extension replaced by
// ".xml". The dirty flag and the current filename are not changed.
func (c *Container) ExportXML(path string) (string, error) {
	if path == "" {
		path = xmlName(c.filename)
	}
	if path == "" {
		return c.fail("export", path, ErrNoFilename)
	}
	if err := c.write(codec.XML{}, path); err != nil {
		return c.fail("export", path, err)
	}
	return c.done("export", path, "Exported %d movie records to %s"), nil
}

// ImportDOM replaces the movies with an XML document read into memory as a
// tree. See importXML for the resulting state.
func (c *Container) ImportDOM(path string) (string, error) {
	return c.importXML(codec.XML{}, path)
}

// ImportSAX replaces the movies with an XML document read as a token
// stream. It accepts the same documents as ImportDOM and produces the same
// movies.
func (c *Container) ImportSAX(path string) (string, error) {
	return c.importXML(codec.XMLStream{}, path)
}

// importXML loads like Load but leaves the container dirty with no filename,
// since its contents no longer match any native file.
func (c *Container) importXML(cd codec.Codec, path string) (string, error) {
	if path == "" {
		return c.fail("import", path, ErrNoFilename)
	}
	if err := c.read(cd, path); err != nil {
		return c.fail("import", path, err)
	}

	c.filename = ""
	c.dirty = true
	return c.done("import", path, "Imported %d movie records from %s"), nil
}

func (c *Container) write(cd codec.Codec, path string) error {
	var buf bytes.Buffer
	if err := cd.Encode(&buf, c.Movies()); err != nil {
		return err
	}
	return ioutils.WriteFileAtomic(path, buf.Bytes())
}

// read decodes path into a staging slice and swaps it in on success.
func (c *Container) read(cd codec.Codec, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	movies, err := cd.Decode(bufio.NewReader(f))
	if err != nil {
		c.Clear(false)
		return err
	}
	c.replace(movies)
	return nil
}

func (c *Container) fail(op, path string, err error) (string, error) {
	c.logger.Warn("collection "+op+" failed", "op", op, "path", path, "error", err)
	return "", fmt.Errorf("failed to %s: %w", op, err)
}

func (c *Container) done(op, path, format string) string {
	c.logger.Debug("collection "+op, "op", op, "path", path, "count", c.Len())
	return fmt.Sprintf(format, c.Len(), filepath.Base(path))
}

func xmlName(filename string) string {
	if filename == "" {
		return ""
	}
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + ".xml"
}
