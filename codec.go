package mak

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/golang/protobuf/proto"
	"github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack"
)

// codec writes and reads one media type.
type codec struct {
	contentType string
	marshal     func(v interface{}) ([]byte, error)
	decode      func(r io.Reader, v interface{}) error
}

var (
	jsonCodec = &codec{
		contentType: "application/json; charset=utf-8",
		marshal:     func(v interface{}) ([]byte, error) { return jsoniter.Marshal(v) },
		decode:      func(r io.Reader, v interface{}) error { return jsoniter.NewDecoder(r).Decode(v) },
	}
	msgpackCodec = &codec{
		contentType: "application/msgpack",
		marshal:     func(v interface{}) ([]byte, error) { return msgpack.Marshal(v) },
		decode:      func(r io.Reader, v interface{}) error { return msgpack.NewDecoder(r).Decode(v) },
	}
	protobufCodec = &codec{
		contentType: "application/protobuf",
		marshal: func(v interface{}) ([]byte, error) {
			m, err := protoMessage(v)
			if err != nil {
				return nil, err
			}
			return proto.Marshal(m)
		},
		decode: func(r io.Reader, v interface{}) error {
			m, err := protoMessage(v)
			if err != nil {
				return err
			}
			b, err := ioutil.ReadAll(r)
			if err != nil {
				return err
			}
			return proto.Unmarshal(b, m)
		},
	}
	tomlCodec = &codec{
		contentType: "application/toml; charset=utf-8",
		marshal: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			err := toml.NewEncoder(&buf).Encode(v)
			return buf.Bytes(), err
		},
		decode: func(r io.Reader, v interface{}) error {
			_, err := toml.DecodeReader(r, v)
			return err
		},
	}
	xmlCodec = &codec{
		contentType: "application/xml; charset=utf-8",
		marshal: func(v interface{}) ([]byte, error) {
			b, err := xml.Marshal(v)
			return append([]byte(xml.Header), b...), err
		},
		decode: func(r io.Reader, v interface{}) error { return xml.NewDecoder(r).Decode(v) },
	}
)

// bodyCodecs maps request media types to the codec that reads them.
var bodyCodecs = map[string]*codec{
	"application/json":       jsonCodec,
	"application/msgpack":    msgpackCodec,
	"application/x-msgpack":  msgpackCodec,
	"application/protobuf":   protobufCodec,
	"application/x-protobuf": protobufCodec,
	"application/toml":       tomlCodec,
	"application/x-toml":     tomlCodec,
	"application/xml":        xmlCodec,
	"text/xml":               xmlCodec,
}

func protoMessage(v interface{}) (proto.Message, error) {
	m, ok := v.(proto.Message)
	if !ok {
		return nil, fmt.Errorf("mak: %T is not a proto.Message", v)
	}
	return m, nil
}

func (c *Ctx) encode(cd *codec, v interface{}) error {
	b, err := cd.marshal(v)
	if err != nil {
		return err
	}
	c.SetContentType(cd.contentType)
	return c.WriteBlob(b)
}

func (c *Ctx) WriteJSON(v interface{}) error     { return c.encode(jsonCodec, v) }
func (c *Ctx) WriteMsgpack(v interface{}) error  { return c.encode(msgpackCodec, v) }
func (c *Ctx) WriteTOML(v interface{}) error     { return c.encode(tomlCodec, v) }
func (c *Ctx) WriteXML(v interface{}) error      { return c.encode(xmlCodec, v) }
func (c *Ctx) WriteProtobuf(v interface{}) error { return c.encode(protobufCodec, v) }

// Bind fills v from the request. GET and HEAD requests and form bodies
// fill a struct from Inputs. Other bodies are decoded by their
// Content-Type, answering ErrUnsupportedMediaType for types it cannot read.
func (c *Ctx) Bind(v interface{}) error {
	if c.R.Method == http.MethodGet || c.R.Method == http.MethodHead {
		return bindValues(v, c.Inputs())
	}
	if c.R.Body == nil || c.R.Body == http.NoBody {
		return ErrRequestBodyEmpty.Envoy(c)
	}

	mt, _, err := mime.ParseMediaType(c.Header("Content-Type"))
	if err != nil {
		return ErrUnsupportedMediaType.Envoy(c)
	}
	switch mt {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return bindValues(v, c.Inputs())
	}

	cd, ok := bodyCodecs[mt]
	if !ok {
		return ErrUnsupportedMediaType.Envoy(c)
	}
	return cd.decode(c.R.Body, v)
}

// bindValues sets the exported fields of the struct v points at. A field
// takes the value named by its `form` tag, or else by its own name in any
// case. Nested structs are filled from the same values.
func bindValues(v interface{}, vals url.Values) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errors.New("mak: Bind needs a pointer to a struct")
	}
	return bindStruct(rv.Elem(), vals)
}

func bindStruct(sv reflect.Value, vals url.Values) error {
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		field, fv := st.Field(i), sv.Field(i)
		if !fv.CanSet() {
			continue
		}
		if fv.Kind() == reflect.Struct {
			if err := bindStruct(fv, vals); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("form")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		raw, ok := lookupFold(vals, name)
		if !ok {
			continue
		}

		if fv.Kind() == reflect.Slice {
			s := reflect.MakeSlice(fv.Type(), len(raw), len(raw))
			for j, r := range raw {
				if err := setScalar(s.Index(j), r); err != nil {
					return err
				}
			}
			fv.Set(s)
			continue
		}
		if err := setScalar(fv, raw[0]); err != nil {
			return err
		}
	}
	return nil
}

func lookupFold(vals url.Values, name string) ([]string, bool) {
	if vs := vals[name]; len(vs) > 0 {
		return vs, true
	}
	for k, vs := range vals {
		if len(vs) > 0 && strings.EqualFold(k, name) {
			return vs, true
		}
	}
	return nil, false
}

func setScalar(fv reflect.Value, s string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return ErrIndeterminateData
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, fv.Type().Bits())
		if err != nil {
			return ErrIndeterminateData
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, fv.Type().Bits())
		if err != nil {
			return ErrIndeterminateData
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, fv.Type().Bits())
		if err != nil {
			return ErrIndeterminateData
		}
		fv.SetFloat(f)
	default:
		return ErrIndeterminateData
	}
	return nil
}
