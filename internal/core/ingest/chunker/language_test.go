package chunker

import "testing"

func TestClassifyRoutesConfigExtensionsToKindConfig(t *testing.T) {
	for _, path := range []string{"a.yaml", "a.yml", "a.toml", "a.json", "a.ini", "a.cfg", "a.conf", "a.env"} {
		if got := Classify(path, []byte("key: value")); got != KindConfig {
			t.Errorf("Classify(%q) = %v, want KindConfig", path, got)
		}
	}
}

func TestClassifyRoutesPlainTextToKindText(t *testing.T) {
	if got := Classify("notes.txt", []byte("just some prose")); got != KindText {
		t.Errorf("Classify(notes.txt) = %v, want KindText", got)
	}
}

func TestClassifyRoutesMarkdownToKindMarkdown(t *testing.T) {
	if got := Classify("README.md", []byte("# Title")); got != KindMarkdown {
		t.Errorf("Classify(README.md) = %v, want KindMarkdown", got)
	}
}

func TestClassifyRoutesBinaryToKindBinary(t *testing.T) {
	content := []byte{0x00, 0x01, 0x02, 0x03}
	if got := Classify("data.bin", content); got != KindBinary {
		t.Errorf("Classify(data.bin) = %v, want KindBinary", got)
	}
}
