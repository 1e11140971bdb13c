// Package relay polls serial devices and forwards their responses as UDP
// datagrams.
//
// Each Port gets a Poller that writes one command byte at a time and reads
// the reply until it ends with the terminator, the transaction deadline
// passes or the device reports end-of-data. Every transaction becomes an
// Envelope that travels through a bounded Queue to a single Forwarder, which
// writes it as one JSON datagram:
//
//	{"port":"/dev/ttyUSB0","command":5,"data":"b2sK","duration_microseconds":10342,"complete":true}
//
// # Basic Usage
//
//	sink, err := relay.DialSink("127.0.0.1:34254", "0.0.0.0:0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	pipeline, err := relay.NewPipeline(
//	    []relay.Port{{Name: "/dev/ttyUSB0", Device: port}},
//	    sink,
//	    relay.WithCommands(0x05, 0x06, 0x07, 0x08),
//	    relay.WithTimeout(100*time.Millisecond),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	err = pipeline.Run(ctx)
//
// # Backpressure
//
// Enqueue blocks while the queue is full, so a stalled forwarder slows the
// pollers down instead of dropping envelopes.
//
// # Empty Responses
//
// By default a transaction that captured nothing still produces an envelope
// with an empty payload. WithEmptyPolicy(EmptySuppress) drops those instead.
// A failed command write never produces an envelope.
package relay
