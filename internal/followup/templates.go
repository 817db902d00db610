package followup

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/wedealize/sourcing-engine/internal/model"
)

// Templates are deterministic string substitution, no template engine. The
// bodies mirror the sourcing team's standing copy in English and Korean.

const (
	maxTemplateLabels = 5
	maxExampleGroups  = 3
	maxExampleNames   = 2
	maxExamplesTotal  = 5
)

var localeMatcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Korean,
})

// negotiateLocale maps any BCP 47 tag (or garbage) onto "en" or "ko".
func negotiateLocale(locale string) string {
	if locale == "" {
		return "en"
	}
	tag, _ := language.MatchStrings(localeMatcher, locale)
	base, _ := tag.Base()
	if base.String() == "ko" {
		return "ko"
	}
	return "en"
}

// renderInitial builds the first data-request message for the bundled
// missing-field groups.
func renderInitial(supplierName string, groups []model.MissingFieldGroup, catalog *model.Catalog, locale string) (subject, body string) {
	labels := groupLabels(groups, catalog, locale)
	examples := productExamples(groups)

	if locale == "ko" {
		return renderInitialKO(supplierName, labels)
	}
	return renderInitialEN(supplierName, labels, examples)
}

func renderInitialEN(supplierName string, labels, examples []string) (string, string) {
	subject := fmt.Sprintf("Product Information Request - %s", supplierName)

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", supplierName)
	b.WriteString("Thank you for providing your product catalog. We noticed that some information is missing for your products, which may affect buyer inquiries.\n\n")
	b.WriteString("Missing Information:\n")
	for _, label := range labels {
		fmt.Fprintf(&b, "  • %s\n", label)
	}
	b.WriteString("\n")
	if len(examples) > 0 {
		fmt.Fprintf(&b, "Products that need updates:\n  %s\n\n", strings.Join(examples, ", "))
	}
	b.WriteString("Having complete product information helps buyers make faster purchasing decisions and increases your chances of receiving inquiries.\n\n")
	b.WriteString("You can update your product information by:\n")
	b.WriteString("1. Replying to this email with the missing details\n")
	b.WriteString("2. Logging into your WeDealize Supplier Portal\n\n")
	b.WriteString("Best regards,\nWeDealize Sourcing Team\n")
	return subject, b.String()
}

func renderInitialKO(supplierName string, labels []string) (string, string) {
	subject := fmt.Sprintf("상품 정보 요청 - %s", supplierName)

	var b strings.Builder
	fmt.Fprintf(&b, "%s 담당자님께,\n\n", supplierName)
	b.WriteString("제출해 주신 상품 카탈로그 감사합니다. 일부 상품 정보가 누락되어 안내드립니다.\n\n")
	b.WriteString("누락된 정보:\n")
	for _, label := range labels {
		fmt.Fprintf(&b, "  • %s\n", label)
	}
	b.WriteString("\n완전한 상품 정보는 바이어의 빠른 구매 결정을 돕고, 더 많은 문의로 이어집니다.\n\n")
	b.WriteString("아래 방법으로 정보를 업데이트해 주세요:\n")
	b.WriteString("1. 이 이메일에 회신하여 누락 정보 제공\n")
	b.WriteString("2. WeDealize 공급사 포털에서 직접 업데이트\n\n")
	b.WriteString("감사합니다.\nWeDealize 소싱팀\n")
	return subject, b.String()
}

// renderNoResponse builds the reminder sent when a request has gone
// unanswered past the response timeout.
func renderNoResponse(supplierName, locale string) (subject, body string) {
	if locale == "ko" {
		subject = fmt.Sprintf("Re: 상품 정보 요청 - %s", supplierName)
		body = fmt.Sprintf(`%s 담당자님께,

안녕하세요.

지난번 보내드린 상품 정보 요청 관련하여 다시 연락드립니다.

귀사와의 협력을 희망하며, 가능하신 시일 내에 관련 정보를 보내주시면 감사하겠습니다.

감사합니다.
WeDealize 소싱팀
`, supplierName)
		return subject, body
	}

	subject = fmt.Sprintf("Re: Product Information Request Follow-up - %s", supplierName)
	body = fmt.Sprintf(`Dear %s Team,

I hope this email finds you well.

I am following up on my previous email regarding the missing product information.

We are very interested in establishing a business relationship and would appreciate
if you could send us the requested details at your earliest convenience.

Thank you for your time and consideration.

Best regards,
WeDealize Sourcing Team
`, supplierName)
	return subject, body
}

func groupLabels(groups []model.MissingFieldGroup, catalog *model.Catalog, locale string) []string {
	var labels []string
	for _, g := range groups {
		if len(labels) >= maxTemplateLabels {
			break
		}
		if f := catalog.ByKey(g.Field); f != nil {
			labels = append(labels, f.Label(locale))
		}
	}
	return labels
}

// productExamples samples names from the first groups, deduplicated, order
// preserved.
func productExamples(groups []model.MissingFieldGroup) []string {
	seen := make(map[string]bool)
	var examples []string
	for i, g := range groups {
		if i >= maxExampleGroups {
			break
		}
		for j, name := range g.ProductNames {
			if j >= maxExampleNames {
				break
			}
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			examples = append(examples, name)
			if len(examples) >= maxExamplesTotal {
				return examples
			}
		}
	}
	return examples
}
