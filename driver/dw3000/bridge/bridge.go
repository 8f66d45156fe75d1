// package bridge tunnels SPI transfers to a DW3000 through a serial
// bridge, such as a microcontroller board enumerating as a USB serial
// device.
//
// Each transfer is a CBOR encoded request carrying the bytes to write,
// answered by a response carrying the bytes read or an error message.
package bridge

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Bus implements dw3000.Bus over a bridge connection.
type Bus struct {
	enc *cbor.Encoder
	dec *cbor.Decoder
}

// Target is the SPI device behind a bridge.
type Target interface {
	Tx(w, r []byte) error
}

// RemoteError is an error reported by the bridge.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string {
	return "bridge: remote: " + e.Msg
}

type request struct {
	_ struct{} `cbor:",toarray"`
	W []byte
}

type response struct {
	_   struct{} `cbor:",toarray"`
	R   []byte
	Err string
}

// maxTransfer bounds the size of a single transfer.
const maxTransfer = 4096

var errTooLarge = errors.New("bridge: transfer too large")

func codec(rw io.ReadWriter) (*cbor.Encoder, *cbor.Decoder, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, nil, fmt.Errorf("bridge: failed to initialize encoder: %w", err)
	}
	dm, err := cbor.DecOptions{
		MaxArrayElements: 16,
	}.DecMode()
	if err != nil {
		return nil, nil, fmt.Errorf("bridge: failed to initialize decoder: %w", err)
	}
	return em.NewEncoder(rw), dm.NewDecoder(rw), nil
}

// New returns a Bus talking to a bridge over rw.
func New(rw io.ReadWriter) (*Bus, error) {
	enc, dec, err := codec(rw)
	if err != nil {
		return nil, err
	}
	return &Bus{enc: enc, dec: dec}, nil
}

// Tx performs a full-duplex transfer. len(r) must equal len(w).
func (b *Bus) Tx(w, r []byte) error {
	if len(w) > maxTransfer {
		return errTooLarge
	}
	if len(r) != len(w) {
		return fmt.Errorf("bridge: read length %d differs from write length %d", len(r), len(w))
	}
	if err := b.enc.Encode(request{W: w}); err != nil {
		return fmt.Errorf("bridge: %w", err)
	}
	var resp response
	if err := b.dec.Decode(&resp); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("bridge: %w", err)
	}
	if resp.Err != "" {
		return &RemoteError{Msg: resp.Err}
	}
	if len(resp.R) != len(r) {
		return fmt.Errorf("bridge: got %d bytes, expected %d", len(resp.R), len(r))
	}
	copy(r, resp.R)
	return nil
}

// Serve answers transfer requests on rw by forwarding them to t, until
// rw reaches EOF. Errors from t are reported to the client.
func Serve(rw io.ReadWriter, t Target) error {
	enc, dec, err := codec(rw)
	if err != nil {
		return err
	}
	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("bridge: %w", err)
		}
		var resp response
		if len(req.W) > maxTransfer {
			resp.Err = errTooLarge.Error()
		} else {
			r := make([]byte, len(req.W))
			if err := t.Tx(req.W, r); err != nil {
				resp.Err = err.Error()
			} else {
				resp.R = r
			}
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("bridge: %w", err)
		}
	}
}
