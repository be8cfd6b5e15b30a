// Package lifecycle is the order status state machine of the gateway.
//
// Inbound execution reports and cancel rejects are classified into events;
// Next maps (status, event) onto the resulting status and the OrderHandler
// callback to fire:
//
//	new ack          -> NEW               OnNewAck
//	new reject       -> NEW_REJECTED      OnNewRej
//	cancel ack       -> CANCELED          OnCancelAck
//	replace ack      -> REPLACED          OnReplaceAck
//	partial fill     -> PARTIALLY_FILLED  OnExecution
//	full fill        -> FULLY_FILLED      OnExecution
//	cancel rejected  -> CANCEL_REJECTED   OnCancelRej
//	replace rejected -> REPLACE_REJECTED  OnReplaceRej
//
// Pending acknowledgements are informational; the remaining execution types
// and unrecognized values leave the status unchanged.
package lifecycle
