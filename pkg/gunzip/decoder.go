package gunzip

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"github.com/paulschiretz/pgl-gunzip/pkg/util"
)

// Decoder selects the gzip implementation used to inflate an archive.
type Decoder string

const (
	// PGzip decompresses with read-ahead on background goroutines. This is the default.
	PGzip Decoder = "pgzip"
	// Gzip decompresses on the calling goroutine only.
	Gzip Decoder = "gzip"
)

// readAheadBlockSize is the size of one pgzip read-ahead block.
const readAheadBlockSize = 1 << 20

var decoderToString = map[Decoder]string{
	PGzip: "pgzip",
	Gzip:  "gzip",
}

var stringToDecoder map[string]Decoder

func init() {
	stringToDecoder = util.InvertMap(decoderToString)
}

func (d Decoder) String() string {
	if str, ok := decoderToString[d]; ok {
		return str
	}
	return fmt.Sprintf("unknown_decoder(%s)", string(d))
}

// ParseDecoder parses a decoder name. An empty string selects PGzip.
func ParseDecoder(s string) (Decoder, error) {
	if s == "" {
		return PGzip, nil
	}
	if d, ok := stringToDecoder[s]; ok {
		return d, nil
	}
	return "", fmt.Errorf("invalid decoder: %q. Must be 'pgzip' or 'gzip'", s)
}

// MarshalJSON implements the json.Marshaler interface for Decoder.
func (d Decoder) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for Decoder.
func (d *Decoder) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoder should be a string, got %s", data)
	}
	parsed, err := ParseDecoder(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// newDecompressor opens a gzip stream on r. The gzip header is read
// immediately, so a non-gzip input fails here rather than mid-copy.
// Concatenated members are inflated into one stream; bytes after the last
// member that do not start a new header fail the read with gzip.ErrHeader.
// The returned name is the original file name stored in the header, if any.
func newDecompressor(d Decoder, r io.Reader, readAheadBlocks int) (io.ReadCloser, string, error) {
	switch d {
	case PGzip, "":
		zr, err := pgzip.NewReaderN(r, readAheadBlockSize, readAheadBlocks)
		if err != nil {
			return nil, "", err
		}
		return zr, zr.Name, nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, "", err
		}
		return zr, zr.Name, nil
	default:
		return nil, "", fmt.Errorf("unsupported decoder: %s", d)
	}
}
