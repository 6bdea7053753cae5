package docproc

import "testing"

func TestMineSpecifications(t *testing.T) {
	text := "Предмет CPV: 45000000-7 контакт: nabavki@opstina.mk тел: 02 3123 456 Краен рок за поднесување: 15.03.2025"
	specs := mineSpecifications(text)

	if len(specs.CPVCodes) != 1 || specs.CPVCodes[0] != "45000000-7" {
		t.Fatalf("expected one CPV code, got %v", specs.CPVCodes)
	}
	if len(specs.Emails) != 1 || specs.Emails[0] != "nabavki@opstina.mk" {
		t.Fatalf("expected one email, got %v", specs.Emails)
	}
	if len(specs.Phones) != 1 {
		t.Fatalf("expected one phone match, got %v", specs.Phones)
	}
	if len(specs.DeadlinePhrases) != 1 {
		t.Fatalf("expected one deadline phrase, got %v", specs.DeadlinePhrases)
	}
}

func TestMimeFromExtension(t *testing.T) {
	if mimeFromExtension("https://example.com/spec.pdf") != "application/pdf" {
		t.Fatal("expected application/pdf for .pdf url")
	}
	if mimeFromExtension("https://example.com/unknown") != "application/octet-stream" {
		t.Fatal("expected octet-stream fallback for unrecognized extension")
	}
}
