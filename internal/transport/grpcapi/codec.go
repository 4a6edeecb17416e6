// Package grpcapi описывает gRPC API кофейни: сервис cafe.v1.OrderBoard с унарными
// методами и серверным стримом живых обновлений.
//
// Сообщения кодируются JSON-кодеком (content-subtype "json"), поэтому кадры
// WatchOrders совпадают по форме с кадрами SSE.
package grpcapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName: content-subtype, под которым зарегистрирован кодек.
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
