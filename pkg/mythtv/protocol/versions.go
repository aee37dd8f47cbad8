package protocol

import (
	"maps"
	"slices"

	"github.com/jmylchreest/gomyth/pkg/mythtv/versioning"
)

// Supported protocol range. Backends before 62 accept MYTH_PROTO_VERSION
// without a token.
const (
	MinVersion     versioning.Version = 56
	MaxVersion     versioning.Version = 91
	DefaultVersion versioning.Version = 88

	firstTokenVersion versioning.Version = 62
)

// tokens holds the handshake token the backend expects for each protocol
// version.
var tokens = map[versioning.Version]string{
	62: "78B5631E",
	63: "3875641D",
	64: "8675309J",
	65: "D2BB94C2",
	66: "0C0FFEE0",
	67: "0G0G0G0",
	68: "90094EAD",
	69: "63835135",
	70: "53153836",
	71: "05e82186",
	72: "D78EFD6F",
	73: "D7FE8D6F",
	74: "SingingPotato",
	75: "SweetRock",
	76: "FireWilde",
	77: "WindMark",
	78: "IceBurns",
	79: "BasaltGiant",
	80: "TaDah!",
	81: "MultiRecDos",
	82: "IdIdO",
	83: "BreakingGlass",
	84: "CanaryCoalmine",
	85: "BluePool",
	88: "XmasGift",
	89: "BuzzFeed",
	90: "BuzzOff",
	91: "BuzzInYourEars",
}

// Token returns the handshake token for v. Versions before 62 need none.
func Token(v versioning.Version) (string, bool) {
	if v >= MinVersion && v < firstTokenVersion {
		return "", true
	}
	t, ok := tokens[v]
	return t, ok
}

// Supported reports whether v can be negotiated.
func Supported(v versioning.Version) bool {
	if v < MinVersion || v > MaxVersion {
		return false
	}
	_, ok := Token(v)
	return ok
}

// Versions lists every supported protocol version in ascending order.
func Versions() []versioning.Version {
	out := make([]versioning.Version, 0, len(tokens)+int(firstTokenVersion-MinVersion))
	for v := MinVersion; v < firstTokenVersion; v++ {
		out = append(out, v)
	}
	return append(out, slices.Sorted(maps.Keys(tokens))...)
}
