package sbi

import "testing"

func TestDecodeMessage(t *testing.T) {
	var args [8]uint64
	args[7] = ExtBase
	args[6] = BaseProbeExtension
	args[0] = ExtTimer

	msg, ok := DecodeMessage(args)
	if !ok {
		t.Fatal("base probe did not decode")
	}
	if msg.Extension != ExtBase || msg.Function != BaseProbeExtension {
		t.Errorf("decoded ext 0x%x fid %d, want base probe", msg.Extension, msg.Function)
	}
	if msg.Args[0] != ExtTimer {
		t.Errorf("args[0] = 0x%x, want 0x%x", msg.Args[0], ExtTimer)
	}
}

func TestDecodeMessageKnownExtensions(t *testing.T) {
	for _, ext := range []uint64{
		ExtLegacyPutchar, ExtLegacyGetchar, ExtBase, ExtTimer,
		ExtIPI, ExtRFence, ExtHSM, ExtSRST,
	} {
		var args [8]uint64
		args[7] = ext
		if _, ok := DecodeMessage(args); !ok {
			t.Errorf("extension 0x%x did not decode", ext)
		}
	}
}

func TestDecodeMessageUnknownExtension(t *testing.T) {
	var args [8]uint64
	args[7] = 0xdeadbeef

	if msg, ok := DecodeMessage(args); ok {
		t.Errorf("unknown extension decoded as %+v", msg)
	}
}

func TestReturns(t *testing.T) {
	ret := Succeed(0x42)
	if ret.Error != Success || ret.Value != 0x42 {
		t.Errorf("Succeed(0x42) = %+v", ret)
	}

	ret = Fail(ErrNotSupported)
	if ret.Error != ErrNotSupported || ret.Value != 0 {
		t.Errorf("Fail(ErrNotSupported) = %+v", ret)
	}
}
