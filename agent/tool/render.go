package tool

import (
	"fmt"
	"strconv"
	"strings"

	callcenterx "github.com/tanpawarit/Chative-Callcenter-Agent/pkg/callcenter"
)

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func renderUserInfo(info callcenterx.UserInfo) string {
	return fmt.Sprintf("Müşteri: %s, Paket: %s, Bakiye: %s TL", info.Name, info.Package, formatAmount(info.Balance))
}

func renderPackages(packages []callcenterx.Package) string {
	if len(packages) == 0 {
		return "Mevcut paket bulunmuyor"
	}
	lines := make([]string, 0, len(packages))
	for _, p := range packages {
		lines = append(lines, fmt.Sprintf("%s: %s TL - %s", p.Name, formatAmount(p.Price), strings.Join(p.Features, ", ")))
	}
	return "Mevcut paketler:\n" + strings.Join(lines, "\n")
}

func renderBills(bills []callcenterx.Bill) string {
	if len(bills) == 0 {
		return "Kayıtlı fatura bulunmuyor"
	}
	lines := make([]string, 0, len(bills))
	for _, b := range bills {
		status := "Ödenmedi"
		if b.Paid {
			status = "Ödendi"
		}
		lines = append(lines, fmt.Sprintf("%s: %s TL - %s", b.Month, formatAmount(b.Amount), status))
	}
	return "Fatura bilgileri:\n" + strings.Join(lines, "\n")
}

func renderUsage(u callcenterx.Usage) string {
	return fmt.Sprintf("Kullanım: %d dakika arama, %.1f GB internet, %d SMS", u.Calls, u.DataGB(), u.SMS)
}
