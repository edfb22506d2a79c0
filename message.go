package sshagent

// Message numbers recognized on the wire (draft-miller-ssh-agent-17
// §3). Any other number decodes to NotYetSupported rather than being
// rejected outright.
const (
	msgFailure           = 5
	msgSuccess           = 6
	msgRequestIdentities = 11
	msgIdentitiesAnswer  = 12
	msgSignRequest       = 13
	msgSignResponse      = 14
	msgAddIdentity       = 17
)

// Request is the sum type of messages a client can send. Concrete
// types are RequestIdentities, SignRequest and AddIdentity.
type Request interface {
	isRequest()
}

// RequestIdentities asks the agent to list the identities it holds.
type RequestIdentities struct{}

func (RequestIdentities) isRequest() {}

// SignRequest asks the agent to sign data with the private key matching
// KeyBlob. Flags are passed through verbatim (e.g. the RSA SHA-2
// signature-flavor bits from the agent protocol extensions); this
// package does not interpret them.
type SignRequest struct {
	KeyBlob OpaqueString
	Data    OpaqueString
	Flags   uint32
}

func (SignRequest) isRequest() {}

// AddIdentity asks the agent to add a private key, carried as an
// opaque ordered list of fields produced by ParseIdentity.
type AddIdentity struct {
	Identity Identity
}

func (AddIdentity) isRequest() {}

// EncodeRequest produces the message bytes for r: the message-number
// byte followed by r's payload, per §4.4. It does not add frame
// length prefixing; use FrameEncode for that.
func EncodeRequest(r Request) []byte {
	switch m := r.(type) {
	case RequestIdentities:
		return []byte{msgRequestIdentities}
	case SignRequest:
		out := make([]byte, 0, 1+4+len(m.KeyBlob)+4+len(m.Data)+4)
		out = writeUint8(out, msgSignRequest)
		out = writeString(out, m.KeyBlob)
		out = writeString(out, m.Data)
		out = writeUint32(out, m.Flags)
		return out
	case AddIdentity:
		out := []byte{msgAddIdentity}
		for _, f := range m.Identity.Fields {
			out = writeString(out, f)
		}
		return out
	default:
		panic("sshagent: unknown request type")
	}
}

// Response is the sum type of messages an agent can send back.
// Concrete types are SuccessResponse, FailureResponse,
// IdentitiesAnswer, SignResponse and NotYetSupported.
type Response interface {
	isResponse()
}

// SuccessResponse is message 6: an unqualified acknowledgement.
type SuccessResponse struct{}

func (SuccessResponse) isResponse() {}

// FailureResponse is message 5: an unqualified rejection.
type FailureResponse struct{}

func (FailureResponse) isResponse() {}

// AgentIdentity is one identity reported by IDENTITIES_ANSWER: a
// public-key blob in SSH wire format, suitable for a later SignRequest,
// and a UTF-8 comment.
type AgentIdentity struct {
	KeyBlob OpaqueString
	Comment string
}

// IdentitiesAnswer is message 12, carrying the identities the agent
// currently holds, in the agent's own order.
type IdentitiesAnswer struct {
	Identities []AgentIdentity
}

func (IdentitiesAnswer) isResponse() {}

// SignResponse is message 14: an SSH-formatted signature (itself a type
// string plus a signature-body string), passed through opaquely.
type SignResponse struct {
	Signature OpaqueString
}

func (SignResponse) isResponse() {}

// NotYetSupported is any defined-or-not message number this package
// does not decode a body for.
type NotYetSupported struct {
	MessageNumber byte
}

func (NotYetSupported) isResponse() {}

// DecodeResponse decodes the payload of one frame (the frame's length
// prefix must already have been stripped by FrameDecodeStream) into a
// Response, per §4.4.
func DecodeResponse(frame []byte) (Response, error) {
	buf := newBuffer(frame)
	n, ok := buf.readUint8()
	if !ok {
		return nil, &BadResponseError{Msg: "empty response frame"}
	}

	switch n {
	case msgSuccess:
		if buf.remaining() > 0 {
			return nil, &TrailingBytesError{MessageNumber: n, Extra: buf.remaining()}
		}
		return SuccessResponse{}, nil

	case msgFailure:
		if buf.remaining() > 0 {
			return nil, &TrailingBytesError{MessageNumber: n, Extra: buf.remaining()}
		}
		return FailureResponse{}, nil

	case msgIdentitiesAnswer:
		k, ok := buf.readUint32()
		if !ok {
			return nil, &BadResponseError{Msg: "IDENTITIES_ANSWER missing key count"}
		}
		identities := make([]AgentIdentity, 0, k)
		for i := uint32(0); i < k; i++ {
			blob, ok := buf.readString()
			if !ok {
				return nil, &BadResponseError{Msg: "IDENTITIES_ANSWER short read on key blob"}
			}
			comment, ok, err := buf.readStringAsUTF8()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, &BadResponseError{Msg: "IDENTITIES_ANSWER short read on comment"}
			}
			identities = append(identities, AgentIdentity{KeyBlob: blob, Comment: comment})
		}
		if buf.remaining() > 0 {
			return nil, &TrailingBytesError{MessageNumber: n, Extra: buf.remaining()}
		}
		return IdentitiesAnswer{Identities: identities}, nil

	case msgSignResponse:
		sig, ok := buf.readString()
		if !ok {
			return FailureResponse{}, nil
		}
		if buf.remaining() > 0 {
			return nil, &TrailingBytesError{MessageNumber: n, Extra: buf.remaining()}
		}
		return SignResponse{Signature: sig}, nil

	default:
		return NotYetSupported{MessageNumber: n}, nil
	}
}
