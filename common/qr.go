package common

const (
	CURRENT_CONTEXT_ID = '1'
)

// StripPrefix splits an HC1: prefixed QR payload into its context identifier
// and the Base45 text that follows
func StripPrefix(proofPrefixed []byte) (contextId byte, proofEUBase45 []byte, err error) {
	contextId, proofEUBase45, err = extractContextId(proofPrefixed)
	if err != nil {
		return 0x00, nil, err
	}

	if contextId != CURRENT_CONTEXT_ID {
		return 0x00, nil, Errorf(ErrMissingPrefix, "Unrecognized QR context identifier %q", contextId)
	}

	return contextId, proofEUBase45, nil
}

func HasEUPrefix(bts []byte) bool {
	_, _, err := extractContextId(bts)
	return err == nil
}

func extractContextId(proofPrefixed []byte) (contextId byte, proofEUBase45 []byte, err error) {
	if len(proofPrefixed) < 4 {
		return 0x00, nil, Errorf(ErrMissingPrefix, "Could not process abnormally short QR")
	}

	if proofPrefixed[0] != 'H' || proofPrefixed[1] != 'C' || proofPrefixed[3] != ':' {
		return 0x00, nil, Errorf(ErrMissingPrefix, "QR is not prefixed as a EU Health Credential")
	}

	contextId = proofPrefixed[2]
	if !((contextId >= '0' && contextId <= '9') || (contextId >= 'A' && contextId <= 'Z')) {
		return 0x00, nil, Errorf(ErrMissingPrefix, "QR has invalid context id byte")
	}

	return contextId, proofPrefixed[4:], nil
}
