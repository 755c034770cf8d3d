package coupling

import "testing"

func TestParseTransferSpec(t *testing.T) {
	spec, err := ParseTransferSpec("fluid_pressure>solid_load")
	if err != nil {
		t.Fatal(err)
	}
	if spec.SendNamespace != "fluid" || spec.SendSocket != "fluid_pressure" {
		t.Errorf("got %+v", spec)
	}
	if spec.RecvNamespace != "solid" || spec.RecvSocket != "solid_load" {
		t.Errorf("got %+v", spec)
	}
}

func TestParseTransferSpecMalformed(t *testing.T) {
	cases := []string{"no-arrow-here", "a_b>c_d>e_f", "noPrefix>c_d", "a_b>noPrefix"}
	for _, c := range cases {
		if _, err := ParseTransferSpec(c); err == nil {
			t.Errorf("%q: expected error", c)
		}
	}
}

func TestParseConnKind(t *testing.T) {
	if k, err := ParseConnKind("state"); err != nil || k != StateConn {
		t.Errorf("got %v, %v", k, err)
	}
	if k, err := ParseConnKind("Nodes"); err != nil || k != NodeConn {
		t.Errorf("got %v, %v", k, err)
	}
	if _, err := ParseConnKind("bogus"); err == nil {
		t.Error("expected error")
	}
}
