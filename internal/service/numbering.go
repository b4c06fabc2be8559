package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"secbank-cbs/internal/model"
)

const (
	accountSeqWidth  = 7
	customerSeqWidth = 6
	maxNumberRetries = 5
)

// numberCodePattern restricts branch and type codes, which seed account number prefixes.
var numberCodePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// AccountNumberPrefix is branch code (3) + type code (2) + 2-digit year, e.g. "001SA26".
func AccountNumberPrefix(branchCode, typeCode string, now time.Time) string {
	return head(branchCode, 3) + head(typeCode, 2) + twoDigitYear(now)
}

// NextAccountNumber formats the sequence after maxExisting as "<prefix>-NNNNNNN".
func NextAccountNumber(prefix, maxExisting string) string {
	return fmt.Sprintf("%s-%0*d", prefix, accountSeqWidth, nextSequence(prefix, maxExisting))
}

// CustomerNumberPrefix is "CIF" + 2-digit year + I or C, e.g. "CIF26I".
func CustomerNumberPrefix(t model.CustomerType, now time.Time) string {
	code := "I"
	if t == model.CustomerCorporate {
		code = "C"
	}
	return "CIF" + twoDigitYear(now) + code
}

func NextCustomerNumber(prefix, maxExisting string) string {
	return fmt.Sprintf("%s%0*d", prefix, customerSeqWidth, nextSequence(prefix, maxExisting))
}

// nextSequence parses the suffix of maxExisting after prefix. Anything
// unparsable restarts the sequence at 1.
func nextSequence(prefix, maxExisting string) int {
	if len(maxExisting) <= len(prefix) || !strings.HasPrefix(maxExisting, prefix) {
		return 1
	}
	suffix := strings.ReplaceAll(maxExisting[len(prefix):], "-", "")
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 1
	}
	return n + 1
}

func head(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func twoDigitYear(t time.Time) string {
	return fmt.Sprintf("%02d", t.Year()%100)
}
