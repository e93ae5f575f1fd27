package column

import "testing"

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same text", Text("a"), Text("a"), true},
		{"text vs ascii", Text("a"), Ascii("a"), false},
		{"blob", Blob{1, 2}, Blob{1, 2}, true},
		{"blob differs", Blob{1, 2}, Blob{1, 3}, false},
		{"list order matters", List{Int(1), Int(2)}, List{Int(2), Int(1)}, false},
		{"set order ignored", Set{Int(1), Int(2)}, Set{Int(2), Int(1)}, true},
		{"set multiplicity", Set{Int(1), Int(1)}, Set{Int(1), Int(2)}, false},
		{"map order ignored",
			Map{{Text("a"), Int(1)}, {Text("b"), Int(2)}},
			Map{{Text("b"), Int(2)}, {Text("a"), Int(1)}}, true},
		{"map value differs",
			Map{{Text("a"), Int(1)}},
			Map{{Text("a"), Int(2)}}, false},
		{"nil vs nil", nil, nil, true},
		{"nil vs value", nil, Int(0), false},
	}

	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: Equal(%v, %v) = %v, want %v", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	if c, err := Compare(Blob{0, 1}, Blob{0, 2}); err != nil || c != -1 {
		t.Errorf("Compare blob = %d, %v", c, err)
	}
	if c, err := Compare(Double(2.5), Double(-1)); err != nil || c != 1 {
		t.Errorf("Compare double = %d, %v", c, err)
	}
	if c, err := Compare(Ascii("eng"), Ascii("eng")); err != nil || c != 0 {
		t.Errorf("Compare ascii = %d, %v", c, err)
	}
	if _, err := Compare(Int(1), BigInt(1)); err == nil {
		t.Error("expected mismatch error comparing int and bigint")
	}
	if _, err := Compare(List{}, List{}); err == nil {
		t.Error("expected error comparing lists")
	}
}

func TestClone_IsDeep(t *testing.T) {
	orig := List{Blob{1, 2}}
	cp := Clone(orig).(List)
	cp[0].(Blob)[0] = 9
	if orig[0].(Blob)[0] != 1 {
		t.Error("Clone shares blob storage with the original")
	}
}

func TestType_Conforms(t *testing.T) {
	if !SetType(KindAscii).Conforms(Set{Ascii("eng")}) {
		t.Error("set<ascii> should accept ascii members")
	}
	if SetType(KindAscii).Conforms(Set{Text("eng")}) {
		t.Error("set<ascii> should reject text members")
	}
	if !MapType(KindText, KindBigInt).Conforms(Map{{Text("a"), BigInt(1)}}) {
		t.Error("map<text, bigint> should accept matching pairs")
	}
	if !Scalar(KindBlob).Conforms(nil) {
		t.Error("nil conforms to every type")
	}
	if got := MapType(KindText, KindBigInt).CQL(); got != "map<text, bigint>" {
		t.Errorf("CQL() = %q", got)
	}
	if got := IsEmpty(Set{}); !got {
		t.Error("empty set should be empty")
	}
}
