package strdesc

import "testing"

func TestConcat(t *testing.T) {
	m := newTestManager()
	got := m.Concat(m.New("foo"), m.New("bar"))
	if got.UTF8() != "foobar" {
		t.Fatalf("Concat = %q, want %q", got.UTF8(), "foobar")
	}
}

func TestLeftRightMid(t *testing.T) {
	m := newTestManager()
	d := m.New("ABCDEFG")

	if got := m.Left(d, 3).UTF8(); got != "ABC" {
		t.Fatalf("Left(3) = %q, want ABC", got)
	}
	if got := m.Right(d, 3).UTF8(); got != "EFG" {
		t.Fatalf("Right(3) = %q, want EFG", got)
	}
	// MID$(s, 2, 3): 1-based start 2 -> 0-based offset 1, 3 elements.
	if got := m.Mid(d, 2, 3).UTF8(); got != "BCD" {
		t.Fatalf("Mid(2,3) = %q, want BCD", got)
	}
}

func TestLeftRightMidClampOutOfRange(t *testing.T) {
	m := newTestManager()
	d := m.New("AB")

	if got := m.Left(d, 10).UTF8(); got != "AB" {
		t.Fatalf("Left(10) on 2-char string = %q, want AB", got)
	}
	if got := m.Right(d, 10).UTF8(); got != "AB" {
		t.Fatalf("Right(10) on 2-char string = %q, want AB", got)
	}
	if got := m.Mid(d, 5, 3).UTF8(); got != "" {
		t.Fatalf("Mid past end = %q, want empty", got)
	}
}

func TestUpperLowerTrim(t *testing.T) {
	m := newTestManager()
	if got := m.Upper(m.New("MiXeD")).UTF8(); got != "MIXED" {
		t.Fatalf("Upper = %q", got)
	}
	if got := m.Lower(m.New("MiXeD")).UTF8(); got != "mixed" {
		t.Fatalf("Lower = %q", got)
	}
	if got := m.Trim(m.New("  padded  ")).UTF8(); got != "padded" {
		t.Fatalf("Trim = %q", got)
	}
}

func TestInstr(t *testing.T) {
	m := newTestManager()
	hay := m.New("the quick brown fox")

	if got := m.Instr(hay, m.New("quick")); got != 5 {
		t.Fatalf("Instr(quick) = %d, want 5", got)
	}
	if got := m.Instr(hay, m.New("missing")); got != 0 {
		t.Fatalf("Instr(missing) = %d, want 0", got)
	}
	if got := m.Instr(hay, m.New("")); got != 1 {
		t.Fatalf("Instr(\"\") = %d, want 1", got)
	}
}

func TestReplace(t *testing.T) {
	m := newTestManager()
	got := m.Replace(m.New("foo bar foo"), m.New("foo"), m.New("baz"))
	if got.UTF8() != "baz bar baz" {
		t.Fatalf("Replace = %q, want %q", got.UTF8(), "baz bar baz")
	}
}

func TestCompareSameEncoding(t *testing.T) {
	m := newTestManager()
	if m.Compare(m.New("abc"), m.New("abc")) != 0 {
		t.Fatalf("Compare(abc,abc) != 0")
	}
	if m.Compare(m.New("abc"), m.New("abd")) >= 0 {
		t.Fatalf("Compare(abc,abd) should be negative")
	}
	if m.Compare(m.New("b"), m.New("a")) <= 0 {
		t.Fatalf("Compare(b,a) should be positive")
	}
}

func TestCompareMixedEncodingPromotesToUTF32(t *testing.T) {
	m := newTestManager()
	ascii := m.New("abc")
	utf32 := m.NewUTF32([]rune("abc"))
	if m.Compare(ascii, utf32) != 0 {
		t.Fatalf("Compare across encodings for equal content should be 0")
	}

	// Code-point order, not backing-byte order: U+00E9 sorts before U+0100
	// even though its UTF-32LE low byte (0xE9) is larger.
	if got := m.Compare(m.New("é"), m.NewUTF32([]rune("Ā"))); got != -1 {
		t.Fatalf("Compare(U+00E9, U+0100) = %d, want -1", got)
	}
}

func TestPromoteUTF32InPlace(t *testing.T) {
	m := newTestManager()
	d := m.New("héllo")
	m.PromoteUTF32(d)
	if d.Encoding() != UTF32 {
		t.Fatalf("encoding after promotion = %v, want UTF32", d.Encoding())
	}
	if d.Len() != 5 {
		t.Fatalf("Len after promotion = %d, want 5 code points", d.Len())
	}
	if d.UTF8() != "héllo" {
		t.Fatalf("UTF8 after promotion = %q", d.UTF8())
	}
	m.PromoteUTF32(d) // idempotent
	if d.Len() != 5 {
		t.Fatalf("Len after second promotion = %d, want 5", d.Len())
	}
}

func TestConcatPromotesToUTF32WhenEitherSideIs(t *testing.T) {
	m := newTestManager()
	got := m.Concat(m.New("foo"), m.NewUTF32([]rune("bar")))
	if got.Encoding() != UTF32 {
		t.Fatalf("Concat result encoding = %v, want UTF32", got.Encoding())
	}
	if got.UTF8() != "foobar" {
		t.Fatalf("Concat = %q, want foobar", got.UTF8())
	}
}
