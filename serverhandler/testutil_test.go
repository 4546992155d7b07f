package serverhandler

import (
	"net/netip"
	"testing"
	"time"

	"lanrelay/application/logging"
	"lanrelay/domain/frame"
	"lanrelay/domain/messages"
	"lanrelay/infrastructure/session"
)

const (
	testGateway   = 0x0A000001 // 10.0.0.1
	testMask      = 0xFFFFFF00 // 255.255.255.0
	testBroadcast = 0x0A0000FF // 10.0.0.255
)

func newTestHandler() *Handler {
	return New(session.New(time.Minute), &Config{
		GatewayIP:     testGateway,
		MaskIP:        testMask,
		BroadcastIP:   testBroadcast,
		ServerVersion: "test-1.0",
	}, nil, logging.NewDefault())
}

// recordingLogger captures Warn calls so tests can assert on dropped-packet
// logging without parsing slog's text output.
type recordingLogger struct {
	warnings []string
	fields   []map[string]any
}

func (r *recordingLogger) Debug(msg string, args ...any) {}
func (r *recordingLogger) Info(msg string, args ...any)  {}

func (r *recordingLogger) Warn(msg string, args ...any) {
	r.warnings = append(r.warnings, msg)
	f := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		f[key] = args[i+1]
	}
	r.fields = append(r.fields, f)
}

func (r *recordingLogger) Error(msg string, args ...any) {}

func newTestHandlerWithLogger(log *recordingLogger) *Handler {
	return New(session.New(time.Minute), &Config{
		GatewayIP:     testGateway,
		MaskIP:        testMask,
		BroadcastIP:   testBroadcast,
		ServerVersion: "test-1.0",
	}, nil, log)
}

func mustAddr(s string) netip.AddrPort {
	return netip.MustParseAddrPort(s)
}

// fakeSink records frames a directed TCP send would deliver.
type fakeSink struct {
	sent [][]byte
}

func (f *fakeSink) TrySend(data []byte) bool {
	f.sent = append(f.sent, append([]byte(nil), data...))
	return true
}

func buildRequestFrame(class frame.Class, sub uint8, payload []byte) []byte {
	p := frame.NewPlain(len(payload))
	p.SetClass(class)
	p.SetSubProtocol(sub)
	if err := p.SetPayload(payload); err != nil {
		panic(err)
	}
	return p.Buffer()
}

func unmarshalRegistrationResponse(t *testing.T, buf []byte) messages.RegistrationResponse {
	t.Helper()
	p, err := frame.New(buf)
	if err != nil {
		t.Fatalf("parse response frame: %v", err)
	}
	resp, ok := messages.UnmarshalRegistrationResponse(p.Payload())
	if !ok {
		t.Fatalf("decode RegistrationResponse")
	}
	return resp
}

func unmarshalDeviceList(t *testing.T, buf []byte) messages.DeviceList {
	t.Helper()
	p, err := frame.New(buf)
	if err != nil {
		t.Fatalf("parse response frame: %v", err)
	}
	list, ok := messages.UnmarshalDeviceList(p.Payload())
	if !ok {
		t.Fatalf("decode DeviceList")
	}
	return list
}
