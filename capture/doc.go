/*
Package capture sniffs HTTP requests from a single network device with pcap.

The engine picks the first non-loopback device (or the configured one),
opens it in promiscuous and immediate mode with a read timeout, installs a
BPF filter for the HTTP ports and then reads frames until it is stopped.
Every TCP payload that starts with a known request method is parsed and
published on the request channel.

example:

	engine := capture.NewEngine(capture.DefaultOptions())
	engine.RegisterStatusChannel(statusDst)
	engine.RegisterRequestChannel(requestDst)
	if err := engine.Init(); err != nil {
		// already initialized
	}
	...
	engine.Stop()

Init never blocks on device setup, failures show up in the status message.
Stop is cooperative: the worker notices it within one read timeout.
*/
package capture
