package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestTranslator(t *testing.T) {
	tests := []struct {
		locale   string
		key      string
		expected string
	}{
		{locale: "", key: LoginSuccess, expected: "登录成功"},
		{locale: "zh-CN", key: NetworkError, expected: "网络错误，请稍后重试"},
		{locale: "en", key: NetworkError, expected: "Network error, please try again later"},
		{locale: "en-GB", key: PasswordTooShort, expected: "Password must be at least 6 characters"},
		{locale: "not a locale", key: LoginFailed, expected: "登录失败"},
	}

	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.locale).T(tt.key))
		})
	}
}

func TestTranslator_PassesThroughUnknownText(t *testing.T) {
	assert.Equal(t, "invalid credentials", New("zh").T("invalid credentials"))
	assert.Equal(t, "100% off", New("en").T("100% off"))
	assert.Equal(t, "anything", (*Translator)(nil).T("anything"))
}

func TestTranslator_Language(t *testing.T) {
	assert.Equal(t, language.English, New("en-US").Language())
	assert.Equal(t, language.SimplifiedChinese, New("").Language())
}
