package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/vearne/httpcap/model"
)

var addr = flag.String("addr", "127.0.0.1:8940", "httpcap api address")

// Starts a capture through the api and prints every request it reports.
//
//	httpcap --http-addr=127.0.0.1:8940
//	go run ./example/ws_client
func main() {
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/api/ws/requests"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("websocket.Dial err: %v", err)
	}
	defer conn.Close()

	resp, err := http.Post("http://"+*addr+"/api/capture/init", "application/json", bytes.NewReader(nil))
	if err != nil {
		log.Fatalf("init capture err: %v", err)
	}
	resp.Body.Close()
	log.Printf("init capture: %s", resp.Status)

	for {
		var req model.HTTPRequest
		if err := conn.ReadJSON(&req); err != nil {
			log.Fatalf("read err: %v", err)
		}
		data, _ := json.Marshal(req)
		log.Printf("%s:%d -> %s:%d %s %s\n%s", req.SrcIP, req.SrcPort, req.DstIP, req.DstPort,
			req.Method, req.Path, data)
	}
}
