package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hermes-notify/subsync/pkg/version"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeAPITXT creates the TXT records for an API instance.
func EncodeAPITXT(info *APIInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyVersion: info.Version.String(),
		TXTKeyPath:    info.Version.Prefix(),
	}
	if info.TLS {
		txt[TXTKeyTLS] = "1"
	}
	return txt
}

// DecodeAPITXT parses the TXT records of an API instance.
func DecodeAPITXT(txt TXTRecordMap) (version.APIVersion, bool, error) {
	raw, ok := txt[TXTKeyVersion]
	if !ok {
		return version.APIVersion{}, false, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	v, err := version.Parse(raw)
	if err != nil {
		return version.APIVersion{}, false, err
	}
	return v, txt[TXTKeyTLS] == "1", nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if k == "" {
			continue
		}
		if !found {
			// Key without value (boolean flag)
			v = ""
		}
		txt[k] = v
	}
	return txt
}
