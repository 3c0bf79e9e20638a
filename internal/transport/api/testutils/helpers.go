package testutils

import "strings"

// OverByteLimit строка, которая укладывается в limit рун, но превышает limit байт. Проверяет, что
// ограничения max_bytes на текстовых полях считают именно байты.
func OverByteLimit(limit int) string {
	const symbol = "é" // 2 байта, 1 руна
	return strings.Repeat(symbol, limit/2+1)
}
