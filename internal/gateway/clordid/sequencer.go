// Package clordid issues request identifiers (ClOrdID) for an order.
//
// A request identifier is the order identifier, a single separator and a
// positive decimal counter: "<orderId>_<n>". The counter starts at 1 and is
// incremented for every replace or cancel sent for the order. Functions here
// are pure; the current identifier of an order is held by the correlation
// store.
package clordid

import (
	"strconv"
	"strings"

	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

// Separator joins the order identifier stem and the counter.
const Separator = "_"

// Initial returns the first request identifier of an order.
func Initial(orderID string) string {
	return orderID + Separator + "1"
}

// Next returns the identifier following previous.
func Next(previous string) (string, error) {
	stem, n, err := Parse(previous)
	if err != nil {
		return "", err
	}
	return Format(stem, n+1), nil
}

// Format builds the identifier for counter n of the given stem.
func Format(stem string, n uint64) string {
	return stem + Separator + strconv.FormatUint(n, 10)
}

// Parse splits a request identifier into its stem and counter. It fails with
// MalformedIdentifier unless id holds exactly one separator between a
// non-empty stem and a positive decimal counter.
func Parse(id string) (string, uint64, error) {
	if strings.Count(id, Separator) != 1 {
		return "", 0, apperrors.MalformedIdentifier.Explain("request id %q must contain exactly one %q", id, Separator)
	}
	i := strings.LastIndex(id, Separator)
	stem, suffix := id[:i], id[i+1:]
	if stem == "" {
		return "", 0, apperrors.MalformedIdentifier.Explain("request id %q has an empty order id", id)
	}
	if suffix == "" || strings.TrimLeft(suffix, "0123456789") != "" {
		return "", 0, apperrors.MalformedIdentifier.Explain("request id %q has a non-numeric counter", id)
	}
	n, err := strconv.ParseUint(suffix, 10, 64)
	if err != nil || n == 0 {
		return "", 0, apperrors.MalformedIdentifier.Explain("request id %q has an invalid counter", id)
	}
	return stem, n, nil
}

// ValidateOrderID rejects order identifiers that could not be used as a stem.
func ValidateOrderID(orderID string) error {
	if orderID == "" {
		return apperrors.InvalidOrder.Explain("order id is empty")
	}
	if strings.Contains(orderID, Separator) {
		return apperrors.InvalidOrder.Explain("order id %q contains the request id separator %q", orderID, Separator)
	}
	return nil
}
