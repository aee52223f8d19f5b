package intel

import (
	"reflect"
	"testing"
)

func TestExtract_EmptyInput(t *testing.T) {
	e := New()
	for _, text := range []string{"", "   ", "\n"} {
		got := e.Extract(text)
		if len(got) != 0 {
			t.Errorf("Extract(%q) = %v, want empty", text, got)
		}
	}
}

func TestExtract_PaymentHandleAndPhone(t *testing.T) {
	e := New()
	got := e.Extract("URGENT: your account is blocked, pay to 9876543210@paytm, call 9876543210")

	if want := []string{"9876543210@paytm"}; !reflect.DeepEqual(got[TypeUPIID], want) {
		t.Errorf("upi_id = %v, want %v", got[TypeUPIID], want)
	}
	if want := []string{"9876543210"}; !reflect.DeepEqual(got[TypePhoneNumber], want) {
		t.Errorf("phone_number = %v, want %v", got[TypePhoneNumber], want)
	}
	if _, ok := got[TypeBankAccount]; ok {
		t.Errorf("bank_account = %v, want none (10-digit run excluded)", got[TypeBankAccount])
	}
}

func TestExtract_HandleLowercased(t *testing.T) {
	e := New()
	got := e.Extract("Send money to Rahul.Verma@YBL today")
	if want := []string{"rahul.verma@ybl"}; !reflect.DeepEqual(got[TypeUPIID], want) {
		t.Errorf("upi_id = %v, want %v", got[TypeUPIID], want)
	}
}

func TestExtract_RepeatedValueDedupedWithinCall(t *testing.T) {
	e := New()
	got := e.Extract("pay 99@ybl or 99@ybl or 99@YBL")
	if want := []string{"99@ybl"}; !reflect.DeepEqual(got[TypeUPIID], want) {
		t.Errorf("upi_id = %v, want %v", got[TypeUPIID], want)
	}
}

func TestExtract_PhoneWithCountryCode(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		text string
	}{
		{"spaced prefix", "whatsapp me on +91 9876543210 fast"},
		{"hyphenated prefix", "whatsapp me on +91-9876543210 fast"},
		{"fused prefix", "call me on +919876543210 now"},
		{"fused prefix without plus", "call me on 919876543210 now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			if want := []string{"9876543210"}; !reflect.DeepEqual(got[TypePhoneNumber], want) {
				t.Errorf("phone_number = %v, want %v", got[TypePhoneNumber], want)
			}
			// The prefixed run is a phone, never an account candidate.
			if _, ok := got[TypeBankAccount]; ok {
				t.Errorf("bank_account = %v, want none", got[TypeBankAccount])
			}
		})
	}
}

func TestExtract_DigitRunContainingMobileStaysAccount(t *testing.T) {
	e := New()
	got := e.Extract("ref 1234569876543210 noted")
	if want := []string{"1234569876543210"}; !reflect.DeepEqual(got[TypeBankAccount], want) {
		t.Errorf("bank_account = %v, want %v", got[TypeBankAccount], want)
	}
	if _, ok := got[TypePhoneNumber]; ok {
		t.Errorf("phone_number = %v, want none (inside a longer run)", got[TypePhoneNumber])
	}
}

func TestExtract_PhoneRequiresValidFirstDigit(t *testing.T) {
	e := New()
	got := e.Extract("call 1234567890 please ok")
	if _, ok := got[TypePhoneNumber]; ok {
		t.Errorf("phone_number = %v, want none (must start 6-9)", got[TypePhoneNumber])
	}
}

func TestExtract_BankAccounts(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"12 digit run accepted", "transfer to account 123456789012 today", []string{"123456789012"}},
		{"9 digit run accepted", "account 123456789 of SBI", []string{"123456789"}},
		{"10 digit run excluded", "account 1234567890 of SBI", nil},
		{"19 digit run rejected", "ref 1234567890123456789 ok", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			if !reflect.DeepEqual(got[TypeBankAccount], tt.want) {
				t.Errorf("bank_account = %v, want %v", got[TypeBankAccount], tt.want)
			}
		})
	}
}

func TestExtract_IFSC(t *testing.T) {
	e := New()
	got := e.Extract("use ifsc sbin0001234 for the transfer")
	if want := []string{"SBIN0001234"}; !reflect.DeepEqual(got[TypeIFSC], want) {
		t.Errorf("ifsc = %v, want %v", got[TypeIFSC], want)
	}
}

func TestExtract_URL(t *testing.T) {
	e := New()
	got := e.Extract("verify here http://sbi-kyc-update.xyz/verify now")
	if want := []string{"http://sbi-kyc-update.xyz/verify"}; !reflect.DeepEqual(got[TypeURL], want) {
		t.Errorf("url = %v, want %v", got[TypeURL], want)
	}
}

func TestExtract_EmailVsHandle(t *testing.T) {
	e := New()

	t.Run("plain email is email only", func(t *testing.T) {
		got := e.Extract("mail me at support.desk@gmail.com ok")
		if want := []string{"support.desk@gmail.com"}; !reflect.DeepEqual(got[TypeEmail], want) {
			t.Errorf("email = %v, want %v", got[TypeEmail], want)
		}
		if _, ok := got[TypeUPIID]; ok {
			t.Errorf("upi_id = %v, want none", got[TypeUPIID])
		}
	})

	t.Run("provider-domain address folds into handle", func(t *testing.T) {
		got := e.Extract("send to refunds@paytm.com now")
		if want := []string{"refunds@paytm"}; !reflect.DeepEqual(got[TypeUPIID], want) {
			t.Errorf("upi_id = %v, want %v", got[TypeUPIID], want)
		}
		if _, ok := got[TypeEmail]; ok {
			t.Errorf("email = %v, want none (payment provider domain)", got[TypeEmail])
		}
	})
}

func TestExtract_RemoteAccessApps(t *testing.T) {
	e := New()
	got := e.Extract("Install AnyDesk or TeamViewer from the link")
	if want := []string{"anydesk", "teamviewer"}; !reflect.DeepEqual(got[TypeRemoteAccessApp], want) {
		t.Errorf("remote_access_app = %v, want %v", got[TypeRemoteAccessApp], want)
	}
}

func TestExtract_DeclaredNames(t *testing.T) {
	e := New()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"my name is", "Hello, my name is Rahul Verma from SBI", []string{"Rahul Verma"}},
		{"i am", "I am Priya calling from the bank", []string{"Priya"}},
		{"this is", "Good morning, this is Amit Kumar here", []string{"Amit Kumar"}},
		{"lowercase token not captured", "my name is rahul", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			if !reflect.DeepEqual(got[TypeDeclaredName], tt.want) {
				t.Errorf("declared_name = %v, want %v", got[TypeDeclaredName], tt.want)
			}
		})
	}
}

func TestExtract_Stateless(t *testing.T) {
	e := New()
	text := "pay to 9876543210@paytm"
	first := e.Extract(text)
	second := e.Extract(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Extract not stateless: %v vs %v", first, second)
	}
}
