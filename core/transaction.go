package core

// Transaction is either a signed user request or a system-originated one —
// spec.md §3. Exactly one of Signature and Owner is set; which one is
// present is the sole routing rule the serializer uses when it is asked to
// decode a transaction with no other context.
type Transaction struct {
	Invocation Invocation
	Signature  *Signature // set for user-submitted transactions
	Owner      string     // set for system transactions; "" otherwise
}

// IsSystem reports whether t was originated by the chain itself rather than
// a signed user submission.
func (t Transaction) IsSystem() bool { return t.Owner != "" }

// Validate enforces the signature-XOR-owner invariant from spec.md §3.
func (t Transaction) Validate() error {
	hasSig := t.Signature != nil
	hasOwner := t.Owner != ""
	if hasSig == hasOwner {
		return newErr(KindProtocol, "Transaction.Validate", withField("signature/owner"))
	}
	return nil
}

// Verify checks a user transaction's signature against its invocation
// payload and returns the recovered signer's public key. It is only
// meaningful when t.Signature is set.
func (t Transaction) Verify() ([]byte, error) {
	if t.Signature == nil {
		return nil, newErr(KindInvalidSignature, "Transaction.Verify", withField("no signature"))
	}
	payload := EncodeInvocation(t.Invocation)
	return VerifySignature(payload, *t.Signature)
}

// ReceiptStatus is the outcome of executing one transaction within a block.
type ReceiptStatus int

const (
	StatusOK ReceiptStatus = iota
	StatusError
)

func (s ReceiptStatus) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "error"
}

// Receipt records the effect of executing a single transaction against the
// block's running storage tree — spec.md §4.5.
type Receipt struct {
	Status         ReceiptStatus
	InitialStorage Hash
	FinalStorage   Hash
	Logs           []string
	Debug          string // populated only when Status is StatusError
}
