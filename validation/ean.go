package validation

// IsEAN 校验 EAN-8 / EAN-13 / EAN-14 条码（含校验位）
func IsEAN(s string) bool {
	n := len(s)
	if n != 8 && n != 13 && n != 14 {
		return false
	}
	for i := 0; i < n; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return int(s[n-1]-'0') == eanCheckDigit(s)
}

// eanCheckDigit 计算校验位：EAN-8/14 从首位起权重 3,1,3...；EAN-13 为 1,3,1...
func eanCheckDigit(s string) int {
	n := len(s)
	sum := 0
	for i := 0; i < n-1; i++ {
		d := int(s[i] - '0')
		if (n == 8 || n == 14) == (i%2 == 0) {
			sum += d * 3
		} else {
			sum += d
		}
	}
	r := 10 - sum%10
	if r == 10 {
		return 0
	}
	return r
}
