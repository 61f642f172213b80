package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryLocaleIsComplete(t *testing.T) {
	for _, lang := range SupportedLanguages {
		t.Run(lang.Code, func(t *testing.T) {
			tr, err := loadTranslations(lang.Code)
			require.NoError(t, err)

			assert.NotEmpty(t, tr.Media.Usage)
			assert.NotEmpty(t, tr.Media.SizeNotice)
			assert.NotEmpty(t, tr.Music.Question)
			assert.NotEmpty(t, tr.Search.Question)
			assert.NotEmpty(t, tr.Confirm.Expired)
			assert.NotEmpty(t, tr.Errors.Generic)
			assert.NotEmpty(t, tr.Birthday.Line)
			assert.Len(t, tr.Birthday.Months, 12)
			assert.NotEmpty(t, tr.Reset.Restarting)
		})
	}
}

func TestUnknownLanguageFallsBackToSpanish(t *testing.T) {
	tr := T("xx")
	assert.Equal(t, "Por favor, proporciona un término de búsqueda o una URL.", tr.Media.Usage)
	assert.Same(t, T("es"), T(" ES "))
}

func TestMonthName(t *testing.T) {
	b := T("es").Birthday
	assert.Equal(t, "enero", b.MonthName(1))
	assert.Equal(t, "diciembre", b.MonthName(12))
	assert.Equal(t, "13", b.MonthName(13))
}
