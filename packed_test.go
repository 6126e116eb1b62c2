package chant

import (
	"bytes"
	"errors"
	"testing"
)

func TestPackUnpack(t *testing.T) {
	blob := newPacker(0).byte(9).fixed([]byte("abc")).prefixed([]byte("hello")).prefixed(nil).bytes()

	u := newUnpacker(blob)
	b := u.byte()
	fixed := u.fixed(3)
	hello := u.prefixed()
	empty := u.prefixed()
	if err := u.finish(); err != nil {
		t.Fatal(err)
	}

	if b != 9 || string(fixed) != "abc" || string(hello) != "hello" || len(empty) != 0 {
		t.Fatalf("got %d %q %q %q", b, fixed, hello, empty)
	}
}

func TestUnpackErrors(t *testing.T) {
	tests := []struct {
		name string
		blob []byte
		read func(u *unpacker)
	}{
		{"empty byte", nil, func(u *unpacker) { u.byte() }},
		{"short fixed", []byte{1, 2}, func(u *unpacker) { u.fixed(3) }},
		{"short prefix", []byte{0, 0, 1}, func(u *unpacker) { u.prefixed() }},
		{"length overrun", []byte{0, 0, 0, 5, 'a'}, func(u *unpacker) { u.prefixed() }},
		{"huge length", []byte{0xff, 0xff, 0xff, 0xff, 'a'}, func(u *unpacker) { u.prefixed() }},
		{"trailing", []byte{0, 0, 0, 1, 'a', 'b'}, func(u *unpacker) { u.prefixed() }},
	}

	for _, test := range tests {
		u := newUnpacker(test.blob)
		test.read(u)
		if err := u.finish(); !errors.Is(err, ErrStructural) {
			t.Errorf("%s: got %v", test.name, err)
		}
	}
}

func TestUnpackSticky(t *testing.T) {
	u := newUnpacker([]byte{0, 0, 0, 9, 1, 2, 3})
	if b := u.prefixed(); b != nil {
		t.Fatal("overrun returned data")
	}
	if b := u.fixed(3); b != nil {
		t.Fatal("read after failure returned data")
	}
	if err := u.finish(); !errors.Is(err, ErrStructural) {
		t.Fatal(err)
	}
}

func TestFixedDoesNotGrowIntoInput(t *testing.T) {
	blob := []byte("abcdef")
	u := newUnpacker(blob)
	head := u.fixed(3)
	_ = append(head, 'X')
	if !bytes.Equal(blob, []byte("abcdef")) {
		t.Fatalf("append through result modified input: %q", blob)
	}
}
