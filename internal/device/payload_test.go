// internal/device/payload_test.go
package device

import "testing"

func TestEncodeBits(t *testing.T) {
	got := EncodeBits([]bool{true, false, false, true})
	if got != "1,0,0,1" {
		t.Fatalf("EncodeBits: got=%q want=%q", got, "1,0,0,1")
	}
	if got := EncodeBits(nil); got != "" {
		t.Fatalf("EncodeBits(nil): got=%q want empty", got)
	}
}

func TestEncodeRegisters(t *testing.T) {
	got := EncodeRegisters([]uint16{0, 17, 65535})
	if got != "0,17,65535" {
		t.Fatalf("EncodeRegisters: got=%q want=%q", got, "0,17,65535")
	}
}

func TestValidField(t *testing.T) {
	for _, f := range []string{"di", "co", "ir", "hr"} {
		if !ValidField(f) {
			t.Fatalf("expected %q to be valid", f)
		}
	}
	if ValidField("ip") {
		t.Fatalf("ip must not be a block field")
	}
}
