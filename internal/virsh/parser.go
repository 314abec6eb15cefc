// Package virsh parses the tabular output of `virsh list --all`.
//
// The accepted line grammar is versioned (GrammarVersion). A listing line is:
// optional leading whitespace, an id field (digits or "-"), whitespace, a
// label without whitespace, whitespace, and a state from the closed set in
// model.KnownDomainStates. Every other line (table header, separator, blank)
// is skipped without error.
//
// Example input:
//
//	 Id    Name                           State
//	----------------------------------------------------
//	 1     instance-0000001a              running
//	 -     instance-0000002b              shut off
package virsh

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"vm-reconcile/internal/model"
)

// GrammarVersion identifies the listing format this parser accepts.
// Bump it together with the testdata fixtures when the grammar changes.
const GrammarVersion = "v1"

// ListCommand is the remote command whose output Parse consumes.
var ListCommand = []string{"virsh", "list", "--all"}

var lineRe = regexp.MustCompile(
	`^\s*([0-9]+|-)\s+(\S+)\s+(running|idle|paused|shut off|crashed|dying|suspended)\s*$`,
)

// ParseResult holds the records parsed from one host's listing.
type ParseResult struct {
	Instances []*model.HypervisorInstance // 成功解析的记录
	Errors    []error                     // 逐条记录的解析错误（LabelDecodeError）
	Skipped   int                         // 不符合语法而被跳过的行数
}

// Parse turns raw listing text from host into hypervisor records.
// A record whose label cannot be decoded is reported in Errors and left out of
// Instances; it never aborts the rest of the listing.
func Parse(host, output string) *ParseResult {
	result := &ParseResult{}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := lineRe.FindStringSubmatch(scanner.Text())
		if m == nil {
			result.Skipped++
			continue
		}

		label := m[2]
		numericID, err := DecodeLabel(label)
		if err != nil {
			var decodeErr *model.LabelDecodeError
			if errors.As(err, &decodeErr) {
				decodeErr.Host = host
			}
			result.Errors = append(result.Errors, err)
			continue
		}

		result.Instances = append(result.Instances, &model.HypervisorInstance{
			Host:      host,
			LocalID:   m[1],
			Label:     label,
			NumericID: numericID,
			State:     model.DomainState(m[3]),
		})
	}

	return result
}

const hexDigits = "0123456789abcdefABCDEF"

// DecodeLabel derives the numeric instance id from a label by reading the
// suffix after its last "-" as hexadecimal. "instance-0000001a" -> 26.
// A label without a "-" separator, or whose suffix holds anything but hex
// digits (including a sign), does not decode.
func DecodeLabel(label string) (int64, error) {
	idx := strings.LastIndex(label, "-")
	if idx < 0 {
		return 0, &model.LabelDecodeError{Label: label, Err: fmt.Errorf("no \"-\" separator")}
	}
	suffix := label[idx+1:]
	if suffix == "" {
		return 0, &model.LabelDecodeError{Label: label, Err: fmt.Errorf("empty suffix")}
	}
	if strings.TrimLeft(suffix, hexDigits) != "" {
		return 0, &model.LabelDecodeError{Label: label, Err: fmt.Errorf("suffix %q is not hexadecimal", suffix)}
	}

	n, err := strconv.ParseInt(suffix, 16, 64)
	if err != nil {
		return 0, &model.LabelDecodeError{Label: label, Err: fmt.Errorf("suffix %q out of range: %w", suffix, err)}
	}
	return n, nil
}

// Command returns the virsh argv for a remediation action on target.
func Command(action model.Action, target string) []string {
	return []string{"virsh", string(action), target}
}
