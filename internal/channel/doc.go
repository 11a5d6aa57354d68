// Package channel delivers messages to an embedded, untrusted execution
// frame and classifies what the frame sends back.
//
// A Channel is bound to one frame and one expected origin. Outbound
// messages sent before the frame finishes initializing are queued and
// flushed, in order, when the frame's handshake arrives. Inbound messages
// are dropped unless their origin matches, and are then decoded into one of
// a fixed set of payload variants.
//
// State Machine:
//
//	Unready --{ready:true} from target origin--> Ready (terminal)
//
// Inbound Payloads (frame → host):
//   - {ready: true}: handshake, exactly one key, accepted once
//   - {screenshot: data, autoscreenshot?: bool}: Screenshot
//   - {error: string, traceback?: string}: ErrorReport
//   - {event: {...}}: Event, forwarded verbatim
//   - anything else: Unclassified
//
// Outbound Payloads (host → frame):
//   - {screenshot: true}: ScreenshotRequest
//   - {event: {type, which}}: EventMessage
//
// Malformed data and origin mismatches are dropped without a reply. There
// is no retry; the pending queue is the only delivery mechanism.
//
// Example Usage:
//
//	ch := channel.New(transport, "https://sandbox.example.com",
//		channel.WithHandler(func(p channel.Payload) { ... }),
//	)
//	ch.Send(channel.ScreenshotRequest{Screenshot: true})
//	ch.Receive(channel.RawEvent{Origin: origin, Data: data})
package channel
