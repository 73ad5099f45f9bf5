package zone

import (
	"strings"
	"testing"

	"github.com/jroosing/charon/internal/dnswire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BasicRecords(t *testing.T) {
	input := `
# a comment
host1.example.com A 192.0.2.1 300
host2.example.com AAAA 2001:db8::1
; semicolon comment
mail.example.com MX 10 mailhost.example.com
www.example.com CNAME example.com
`
	recs, skipped, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, recs, 4)

	assert.Equal(t, "host1.example.com", recs[0].Name)
	assert.Equal(t, dnswire.TypeA, recs[0].Type)
	assert.EqualValues(t, 300, recs[0].TTL)
	assert.Equal(t, "192.0.2.1", recs[0].Data)

	assert.EqualValues(t, DefaultTTL, recs[1].TTL)

	mx := recs[2].Data.(dnswire.MXData)
	assert.EqualValues(t, 10, mx.Preference)
	assert.Equal(t, "mailhost.example.com", mx.Exchange)
}

func TestParse_SkipsMalformedLines(t *testing.T) {
	input := `
good.example.com A 192.0.2.1
bad line with no type
another.example.com BOGUSTYPE somedata
`
	recs, skipped, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 2, skipped)
}

func TestParse_SkipsInvalidRData(t *testing.T) {
	input := `
good.example.com A 192.0.2.1
bad.example.com A not-an-ip
`
	recs, skipped, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "good.example.com", recs[0].Name)
}

func TestParse_SOA(t *testing.T) {
	input := `example.com SOA ns1.example.com hostmaster.example.com 2024010100 3600 600 604800 300`
	recs, skipped, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, recs, 1)

	// no trailing TTL field here: the 7th numeric field is SOA's own
	// MINIMUM, not an omitted TTL, so the default TTL applies.
	assert.EqualValues(t, DefaultTTL, recs[0].TTL)

	soa := recs[0].Data.(dnswire.SOAData)
	assert.Equal(t, "ns1.example.com", soa.MName)
	assert.EqualValues(t, 2024010100, soa.Serial)
	assert.EqualValues(t, 300, soa.Minimum)
}

func TestParse_SOA_WithExplicitTTL(t *testing.T) {
	input := `example.com SOA ns1.example.com hostmaster.example.com 2024010100 3600 600 604800 300 900`
	recs, skipped, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, recs, 1)

	assert.EqualValues(t, 900, recs[0].TTL)

	soa := recs[0].Data.(dnswire.SOAData)
	assert.EqualValues(t, 300, soa.Minimum)
}
