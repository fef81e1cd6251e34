package domino

import "testing"

func TestDecodeConfigJSON(t *testing.T) {
	value, err := DecodeConfig(JSONCodec{}, []byte(`{"port": 8080, "host": "localhost"}`))
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if value["host"] != "localhost" {
		t.Errorf("expected host decoded, got %v", value)
	}
}

func TestDecodeConfigYAML(t *testing.T) {
	value, err := DecodeConfig(YAMLCodec{}, []byte("port: 8080\nhost: localhost\n"))
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if value["port"] != 8080 {
		t.Errorf("expected port decoded, got %v", value)
	}
	if value["host"] != "localhost" {
		t.Errorf("expected host decoded, got %v", value)
	}
}

func TestDecodeConfigEmpty(t *testing.T) {
	value, err := DecodeConfig(JSONCodec{}, nil)
	if err != nil {
		t.Fatalf("DecodeConfig failed: %v", err)
	}
	if value == nil || len(value) != 0 {
		t.Errorf("expected empty map for empty input, got %v", value)
	}
}

func TestDecodeConfigMalformed(t *testing.T) {
	if _, err := DecodeConfig(JSONCodec{}, []byte("{not json")); err == nil {
		t.Fatal("expected error for malformed input")
	}
}

func TestCodecContentTypes(t *testing.T) {
	if got := (JSONCodec{}).ContentType(); got != "application/json" {
		t.Errorf("expected JSON content type, got %q", got)
	}
	if got := (YAMLCodec{}).ContentType(); got != "application/x-yaml" {
		t.Errorf("expected YAML content type, got %q", got)
	}
}
