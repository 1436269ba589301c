/*
Package encodingtype provides constants for the known RFB rectangle
encoding types.
https://tools.ietf.org/html/rfc6143#section-7.7
*/
package encodingtype

// ID represents a known RFB encoding identifier, standard or pseudo.
type ID int32

//go:generate stringer -type=ID

const (
	// Standard Encodings
	Raw      ID = 0
	CopyRect ID = 1
	RRE      ID = 2
	CoRRE    ID = 4
	Hextile  ID = 5
	Zlib     ID = 6
	Tight    ID = 7
	ZlibHex  ID = 8
	TRLE     ID = 15
	ZRLE     ID = 16
	ZYWRLE   ID = 17

	// TightPng is a community extension: Tight's framing, PNG body only.
	TightPng ID = -260

	// Pseudo Encodings (negative numbers), not implemented by this
	// library but enumerated so callers doing SetEncodings negotiation
	// have the full numbering space available.
	CursorPseudo              ID = -239
	DesktopSizePseudo         ID = -223
	ExtendedDesktopSizePseudo ID = -308
	DesktopNamePseudo         ID = -307
	FencePseudo               ID = -312
	ContinuousUpdatesPseudo   ID = -313
)
