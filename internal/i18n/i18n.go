// Package i18n holds the user facing messages shown after an auth
// operation. Simplified Chinese is the default, matching the site.
package i18n

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. The English text doubles as the key.
const (
	LoginSuccess           = "Login successful"
	LoginFailed            = "Login failed"
	RegisterSuccess        = "Registration successful, you are now logged in"
	RegisterSuccessNoLogin = "Registration successful, please log in"
	RegisterFailed         = "Registration failed"
	CodeSent               = "Verification code sent"
	CodeSendFailed         = "Failed to send verification code"
	ResetSuccess           = "Password reset successful"
	ResetFailed            = "Password reset failed"
	LogoutSuccess          = "Logged out"
	NetworkError           = "Network error, please try again later"
	RequestFailed          = "Request failed"
	EmailRequired          = "Please enter your email address"
	EmailInvalid           = "Please enter a valid email address"
	EmailSuffixNotAllowed  = "This email domain is not supported"
	PasswordRequired       = "Please enter your password"
	FormIncomplete         = "Please fill in all required fields"
	CodeRequired           = "Please enter the email verification code"
	PasswordTooShort       = "Password must be at least 6 characters"
	PasswordMismatch       = "The two passwords do not match"
	TermsRequired          = "Please accept the terms of service and privacy policy"
	RegistrationDisabled   = "Registration is currently closed"
	CodeTypeInvalid        = "Unknown verification code type"
	NotAuthenticated       = "You are not logged in"
	RateLimited            = "Too many requests, please try again later"
	InvalidRequest         = "Invalid request"
)

var simplifiedChinese = map[string]string{
	LoginSuccess:           "登录成功",
	LoginFailed:            "登录失败",
	RegisterSuccess:        "注册成功，已自动登录",
	RegisterSuccessNoLogin: "注册成功，请登录",
	RegisterFailed:         "注册失败",
	CodeSent:               "验证码已发送",
	CodeSendFailed:         "发送失败",
	ResetSuccess:           "密码重置成功",
	ResetFailed:            "重置失败",
	LogoutSuccess:          "已退出登录",
	NetworkError:           "网络错误，请稍后重试",
	RequestFailed:          "请求失败",
	EmailRequired:          "请先输入邮箱地址",
	EmailInvalid:           "请输入有效的邮箱地址",
	EmailSuffixNotAllowed:  "不支持该邮箱后缀",
	PasswordRequired:       "请输入密码",
	FormIncomplete:         "请填写完整信息",
	CodeRequired:           "请输入邮箱验证码",
	PasswordTooShort:       "密码长度至少为6位",
	PasswordMismatch:       "两次输入的密码不一致",
	TermsRequired:          "请同意服务条款和隐私政策",
	RegistrationDisabled:   "暂未开放注册",
	CodeTypeInvalid:        "未知的验证码类型",
	NotAuthenticated:       "您尚未登录",
	RateLimited:            "请求过于频繁，请稍后再试",
	InvalidRequest:         "请求格式错误",
}

var messages = buildCatalog()

func buildCatalog() catalog.Catalog {
	builder := catalog.NewBuilder(catalog.Fallback(language.SimplifiedChinese))

	for key, translated := range simplifiedChinese {
		if err := builder.SetString(language.SimplifiedChinese, key, translated); err != nil {
			logrus.WithError(err).WithField("key", key).Errorln("Failed to register translation")
		}
		if err := builder.SetString(language.English, key, key); err != nil {
			logrus.WithError(err).WithField("key", key).Errorln("Failed to register translation")
		}
	}

	return builder
}

// Translator renders message keys for one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New picks the closest supported language for a locale such as "en",
// "en-US" or "zh-CN". Unknown locales fall back to Simplified Chinese.
func New(locale string) *Translator {
	matcher := language.NewMatcher(messages.Languages())

	tag := language.SimplifiedChinese
	if len(locale) > 0 {
		if requested, err := language.Parse(locale); err == nil {
			_, index, confidence := matcher.Match(requested)
			if confidence != language.No {
				tag = messages.Languages()[index]
			}
		} else {
			logrus.WithField("locale", locale).Warnln("Unknown locale, using default")
		}
	}

	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(messages)),
	}
}

func (t *Translator) Language() language.Tag {
	return t.tag
}

// T translates a message key. Text that is not a key, such as a message
// coming from the backend, is returned unchanged.
func (t *Translator) T(key string) string {
	if t == nil {
		return key
	}
	if _, ok := simplifiedChinese[key]; !ok {
		return key
	}
	return t.printer.Sprintf(key)
}
