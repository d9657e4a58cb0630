package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Eursukkul/teetime-lifecycle/internal/models"
)

const footer = "\n\n문의: 고객센터 02-2003-2005"

var texts = map[models.NotificationType]string{
	models.NotifyBookingConfirmed: `[안심골프] 예약이 확정되었습니다.

골프장: {{.courseName}}
일시: {{.date}} {{.time}}
결제금액: {{won .amount}}

즐거운 라운딩 되세요!`,

	models.NotifyPaymentPending: `[안심골프] 입금을 기다리고 있습니다.

골프장: {{.courseName}}
일시: {{.date}} {{.time}}
결제금액: {{won .amount}}

가상계좌로 입금해주세요.`,

	models.NotifyPaymentReminder: `[안심골프] 입금 확인이 필요합니다.

골프장: {{.courseName}}
일시: {{.date}} {{.time}}
결제금액: {{won .amount}}

입금 후 자동으로 예약이 확정됩니다.`,

	models.NotifyRoundReminderD1: `[안심골프] 내일 라운딩 일정이 있습니다.

골프장: {{.courseName}}
일시: {{.date}} {{.time}}

매너 플레이로 즐거운 라운딩 되세요!`,

	models.NotifyRoundReminderD0: `[안심골프] 오늘 라운딩 2시간 전입니다.

골프장: {{.courseName}}
티타임: {{.time}}

안전 운전하세요!`,

	models.NotifyNoShowWarning: `[안심골프] 체크인을 확인해주세요.

골프장: {{.courseName}}
예약시간: {{.date}} {{.time}}
예약자: {{.userName}}
예상 위약금: {{won .penaltyAmount}}

체크인 미확인 시 노쇼 처리될 수 있습니다.`,

	models.NotifyNoShowCharged: `[안심골프] 노쇼 위약금이 청구되었습니다.

골프장: {{.courseName}}
예약일시: {{.date}} {{.time}}
위약금: {{won .penaltyAmount}}
입금계좌: {{.bankName}} {{.accountNumber}} ({{.accountHolder}})
납부기한: {{.paymentDeadline}}` + footer,

	models.NotifyBookingCanceled: `[안심골프] 예약이 취소되었습니다.

골프장: {{.courseName}}
일시: {{.date}} {{.time}}

환불은 {{with .refundPolicy}}{{.}}{{else}}정책에 따라{{end}} 처리됩니다.`,

	models.NotifyPriceDropped: `[안심골프] 관심 티타임 가격이 인하되었습니다!

골프장: {{.courseName}}
일시: {{.date}} {{.time}}
기존가: {{won .originalPrice}}
할인가: {{won .newPrice}}

지금 바로 예약하세요!`,

	models.NotifyPenaltyPaidConfirm: `[안심골프] 노쇼 위약금 납부가 확인되었습니다.

골프장: {{.courseName}}
납부금액: {{won .paidAmount}}

이용해 주셔서 감사합니다.` + footer,

	models.NotifySettlementReady: `[안심골프] 정산서가 준비되었습니다.

정산기간: {{.startDate}} ~ {{.endDate}}
예약건수: {{.totalBookings}}건
정산금액: {{won .netAmount}}

관리자 페이지에서 확인해주세요.`,
}

// Renderer turns a notification type and its template data into message text.
type Renderer struct {
	templates map[models.NotificationType]*template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{"won": won}
	r := &Renderer{templates: make(map[models.NotificationType]*template.Template, len(texts))}
	for typ, text := range texts {
		tpl, err := template.New(string(typ)).Funcs(funcs).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", typ, err)
		}
		r.templates[typ] = tpl
	}
	return r, nil
}

func (r *Renderer) Render(typ models.NotificationType, data map[string]any) (string, error) {
	tpl, ok := r.templates[typ]
	if !ok {
		return "", fmt.Errorf("no template for %s", typ)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", typ, err)
	}
	return buf.String(), nil
}

// TemplateCode is the channel template registered for typ.
func TemplateCode(typ models.NotificationType) string {
	return "TPL_" + string(typ)
}

// won formats an amount as "150,000원". Template data read back from JSON
// carries numbers as float64.
func won(v any) string {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int64:
		n = x
	case float64:
		n = int64(x)
	case json.Number:
		n, _ = x.Int64()
	case string:
		n, _ = strconv.ParseInt(x, 10, 64)
	default:
		return ""
	}
	if n == 0 {
		return ""
	}
	return groupThousands(n) + "원"
}

func groupThousands(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
