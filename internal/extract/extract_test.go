package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catastro/internal/types"
)

const sampleFile = `<?xml version="1.0" encoding="UTF-8"?>
<registro_catastral>
  <predios>
    <predio>
      <codigo_predial_nacional> 251260001000000010001000000000 </codigo_predial_nacional>
      <direccion>CALLE 10 # 5-20</direccion>
      <avaluo>125000</avaluo>
      <matricula></matricula>
      <observacion/>
      <interesados>
        <persona_natural>
          <documento>1010</documento>
          <primer_nombre>ANA</primer_nombre>
        </persona_natural>
        <persona_natural>
          <documento>2020</documento>
          <primer_nombre>LUIS</primer_nombre>
        </persona_natural>
      </interesados>
    </predio>
    <predio>
      <codigo_predial_nacional></codigo_predial_nacional>
      <avaluo>1</avaluo>
    </predio>
    <predio>
      <avaluo>2</avaluo>
    </predio>
    <predio>
      <codigo_predial_nacional>251260001000000010002000000000</codigo_predial_nacional>
      <avaluo> </avaluo>
    </predio>
  </predios>
</registro_catastral>`

func TestExtractor_Read(t *testing.T) {
	snap, err := New(DefaultSchema()).Read(strings.NewReader(sampleFile), "Registro_catastral_25126.xml", "25126", "2024")
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 2, snap.Skipped)
	assert.Equal(t, 0, snap.Duplicates)
	assert.Equal(t, "25126", snap.Municipio)
	assert.Equal(t, "2024", snap.Vigencia)

	p, ok := snap.Predios["251260001000000010001000000000"]
	require.True(t, ok, "identifier is trimmed before indexing")

	assert.Equal(t, types.Text("125000"), p.Fields["avaluo"], "numeric text stays text")
	assert.Equal(t, types.NullValue(), p.Fields["matricula"])
	assert.Equal(t, types.NullValue(), p.Fields["observacion"])

	parties := p.Fields["interesados"]
	require.True(t, parties.IsNested())
	assert.Equal(t, "ANA", parties.Fields.Path("persona_natural", "primer_nombre").Text)
	assert.Equal(t, "LUIS", parties.Fields.Path("persona_natural#2", "primer_nombre").Text)

	blank := snap.Predios["251260001000000010002000000000"]
	assert.Equal(t, types.Text(" "), blank.Fields["avaluo"], "whitespace is kept verbatim")
}

func TestExtractor_EmptyIdentifierNeverIndexed(t *testing.T) {
	doc := `<r><predio><codigo_predial_nacional>  </codigo_predial_nacional></predio></r>`
	ex := New(Schema{})

	for i := 0; i < 2; i++ {
		snap, err := ex.Read(strings.NewReader(doc), "f.xml", "", "")
		require.NoError(t, err)
		assert.Zero(t, snap.Len())
		assert.Equal(t, 1, snap.Skipped)
	}
}

func TestExtractor_Duplicates(t *testing.T) {
	doc := `<r>
<predio><codigo_predial_nacional>X</codigo_predial_nacional><avaluo>1</avaluo></predio>
<predio><codigo_predial_nacional>X</codigo_predial_nacional><avaluo>2</avaluo></predio>
</r>`
	snap, err := New(DefaultSchema()).Read(strings.NewReader(doc), "f.xml", "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
	assert.Equal(t, 1, snap.Duplicates)
	assert.Equal(t, "2", snap.Predios["X"].Fields["avaluo"].Text)
}

func TestExtractor_CustomSchema(t *testing.T) {
	doc := `<r><unidad><npn>ABC</npn></unidad><predio><npn>IGNORED</npn></predio></r>`
	snap, err := New(Schema{RecordElement: "unidad", IdentifierField: "npn"}).Read(strings.NewReader(doc), "f.xml", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC"}, snap.IDs().Sorted())
}

func TestParse_Latin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><r><predio><codigo_predial_nacional>1</codigo_predial_nacional><direccion>CARRERA 5 N\xba 3</direccion></predio></r>"
	snap, err := New(DefaultSchema()).Read(strings.NewReader(doc), "f.xml", "", "")
	require.NoError(t, err)
	assert.Equal(t, "CARRERA 5 Nº 3", snap.Predios["1"].Fields["direccion"].Text)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unclosed", `<r><predio>`},
		{"mismatched", `<r><predio></r>`},
		{"empty", ``},
		{"text only", `just text`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(DefaultSchema()).Read(strings.NewReader(tt.doc), "bad.xml", "", "")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedInput))

			var mie *MalformedInputError
			require.True(t, errors.As(err, &mie))
			assert.Equal(t, "bad.xml", mie.Source)
		})
	}
}
