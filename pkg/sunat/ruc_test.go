package sunat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eFaps/eFapsApp-ElectronicBilling-sub000/pkg/sunat"
)

func TestValidateRUC_Validos(t *testing.T) {
	for _, ruc := range []string{"20100070970", "20131312955", "20-10007097-0"} {
		assert.NoError(t, sunat.ValidateRUC(ruc), "RUC %s debe ser válido", ruc)
	}
}

func TestValidateRUC_DigitoIncorrecto(t *testing.T) {
	err := sunat.ValidateRUC("20100070971")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dígito verificador")
}

func TestValidateRUC_LongitudYPrefijo(t *testing.T) {
	assert.Error(t, sunat.ValidateRUC("2010007097"), "10 dígitos no es un RUC")
	assert.Error(t, sunat.ValidateRUC("30100070970"), "prefijo 30 no existe")
}

func TestComputeRUCCheckDigit(t *testing.T) {
	d, err := sunat.ComputeRUCCheckDigit("2013131295")
	require.NoError(t, err)
	assert.Equal(t, byte('5'), d)
}
