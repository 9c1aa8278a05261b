package repository

import "github.com/shopspring/decimal"

// В PostgreSQL суммы хранятся в центах. Сумма, не помещающаяся в BIGINT,
// возвращает ErrAmountOutOfRange.
func toCents(d decimal.Decimal) (int64, error) {
	c := d.Shift(2).Round(0).BigInt()
	if !c.IsInt64() {
		return 0, ErrAmountOutOfRange
	}
	return c.Int64(), nil
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
