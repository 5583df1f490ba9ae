// Command originserver wires the core packages (hostregistry, driver,
// codec, response, writer) into a minimal runnable listener. Socket
// acceptance, TLS handshake completion, signal handling, and the
// request parser's byte grammar remain out-of-scope collaborators
// (spec.md §1) — this binary supplies trivial stand-ins for them so
// the core packages can be exercised end to end.
package main

import (
	"bufio"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/coldframe/origin/driver"
	"github.com/coldframe/origin/hostregistry"
)

// echoHandler is the trivial application handler this example wires
// in; a real deployment supplies its own hostregistry.Handler backed
// by the driver's concrete Request/ResponseWriter types.
type echoHandler struct {
	log *logrus.Entry
}

func (echoHandler) ServeOrigin(hostregistry.ResponseWriter, hostregistry.Request) {}

func main() {
	log := logrus.NewEntry(logrus.StandardLogger())

	host, err := hostregistry.NewHost("0.0.0.0", "localhost", 8080, echoHandler{log}, nil)
	if err != nil {
		log.WithError(err).Fatal("invalid host configuration")
	}
	registry, err := hostregistry.NewRegistry(host)
	if err != nil {
		log.WithError(err).Fatal("invalid registry configuration")
	}

	addr := fmt.Sprintf("%s:%d", host.Address(), host.Port())
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.WithError(err).Fatal("listen failed")
	}
	log.Infof("serving on %s", ln.Addr())

	d := driver.New(log, driver.NewMetrics(nil))

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.WithError(err).Error("accept failed")
			return
		}
		go serve(d, registry, conn, log)
	}
}

// serve stands in for the parser's byte grammar: it treats each line
// on the connection as a complete request and answers it with a
// fixed body, demonstrating the driver.Writer / driver.NewResponse /
// response.Response wiring a real Decoder would drive identically.
func serve(d *driver.Driver, registry *hostregistry.Registry, conn net.Conn, log *logrus.Entry) {
	defer conn.Close()

	if _, ok := registry.Lookup("*"); !ok {
		log.Warn("no host matches this connection")
		return
	}

	br := bufio.NewReader(conn)
	for {
		if _, err := br.ReadString('\n'); err != nil {
			if err != io.EOF {
				log.WithError(err).Debug("connection read error")
			}
			return
		}

		wc := d.Writer(func(p []byte) error {
			_, werr := conn.Write(p)
			return werr
		}, 1, 1)
		resp := driver.NewResponse(wc, "")
		resp.SetStatus(200).SetHeader("X-Served-By", "originserver").Send([]byte("ok\n"))

		if err := resp.Err(); err != nil {
			if !driver.RecoverFilterFailure(resp, func(p []byte) error {
				_, werr := conn.Write(p)
				return werr
			}) {
				log.WithError(err).Warn("response failed")
			}
			return
		}

		// Send already drove every byte through the codec while the
		// handler ran above, so FinalBody is nil and this is a no-op
		// here; a handler that called resp.SendBody instead needs this
		// call to actually stream its body (see FinishResponse's doc).
		if err := driver.FinishResponse(wc, resp); err != nil {
			log.WithError(err).Warn("response body failed")
			return
		}
	}
}
