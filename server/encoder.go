package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"glacier/model"
)

// frame is an encoded reply ready for the connection.
type frame struct {
	typ  string
	kind int
	data []byte
}

// encoder turns replies into frames in the format the client asked for when
// it connected.
type encoder interface {
	encode(reply model.Reply) (frame, error)
	name() string
}

func newEncoder(r *http.Request) encoder {
	if r.URL.Query().Get("format") == "msgpack" {
		return msgpackEncoder{}
	}
	return jsonEncoder{}
}

type jsonEncoder struct{}

func (jsonEncoder) encode(reply model.Reply) (frame, error) {
	data, err := json.Marshal(reply)
	if err != nil {
		return frame{}, err
	}
	return frame{typ: reply.Type, kind: websocket.TextMessage, data: data}, nil
}

func (jsonEncoder) name() string {
	return "json"
}

type msgpackEncoder struct{}

func (msgpackEncoder) encode(reply model.Reply) (frame, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(reply); err != nil {
		return frame{}, err
	}
	return frame{typ: reply.Type, kind: websocket.BinaryMessage, data: buf.Bytes()}, nil
}

func (msgpackEncoder) name() string {
	return "msgpack"
}

func writeFrame(conn *websocket.Conn, f frame) error {
	return conn.WriteMessage(f.kind, f.data)
}
