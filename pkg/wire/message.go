package wire

import "fmt"

// MaxTransferSize is the largest byte range one request may carry.
const MaxTransferSize = 1024

// Request is a memory access request from client to server.
//
// CBOR encoding:
//
//	{
//	  1: messageId,   // uint32, non-zero
//	  2: operation,   // uint8
//	  3: address,     // uint32
//	  4: size,        // uint32, ReadMem only
//	  5: data,        // bytes, WriteMem only
//	  6: value        // uint32, SetMem32 only
//	}
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Operation Operation `cbor:"2,keyasint"`
	Address   uint32    `cbor:"3,keyasint"`
	Size      uint32    `cbor:"4,keyasint,omitempty"`
	Data      []byte    `cbor:"5,keyasint,omitempty"`
	Value     uint32    `cbor:"6,keyasint,omitempty"`
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.MessageID == 0 {
		return fmt.Errorf("messageId 0 is reserved")
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	switch r.Operation {
	case OpReadMem:
		if r.Size == 0 {
			return fmt.Errorf("ReadMem of zero bytes")
		}
		if r.Size > MaxTransferSize {
			return fmt.Errorf("ReadMem of %d bytes exceeds %d", r.Size, MaxTransferSize)
		}
	case OpWriteMem:
		if len(r.Data) == 0 {
			return fmt.Errorf("WriteMem without data")
		}
		if len(r.Data) > MaxTransferSize {
			return fmt.Errorf("WriteMem of %d bytes exceeds %d", len(r.Data), MaxTransferSize)
		}
	}
	return nil
}

// Response answers a Request.
//
// CBOR encoding:
//
//	{
//	  1: messageId,   // uint32, matches request
//	  2: status,      // uint8
//	  3: data,        // bytes, ReadMem only
//	  4: value,       // uint32, GetMem32 only
//	  5: message      // string, failure detail
//	}
type Response struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Status    Status `cbor:"2,keyasint"`
	Data      []byte `cbor:"3,keyasint,omitempty"`
	Value     uint32 `cbor:"4,keyasint,omitempty"`
	Message   string `cbor:"5,keyasint,omitempty"`
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}
