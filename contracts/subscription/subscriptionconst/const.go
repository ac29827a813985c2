package subscriptionconst

const (
	// Period is a subscription interval in seconds. Each accepted payment
	// moves the due date to the block time of the payment plus Period.
	Period = 60

	// MaxEmailLength is the maximum length of subscriber's email in bytes.
	MaxEmailLength = 100
	// MaxNameLength is the maximum length of subscriber's first and last
	// names in bytes.
	MaxNameLength = 50

	// SubscribeAction is the first element of NEP-17 payment data that
	// subscribes the payer. It is followed by email, first and last names.
	SubscribeAction = "subscribe"
	// PaymentAction is the first element of NEP-17 payment data that pays
	// the next period of an active subscription.
	PaymentAction = "makePayment"
)

const (
	// ErrInvalidEmailLength is thrown on empty or too long email.
	ErrInvalidEmailLength = "email cannot be empty or exceed 100 characters"
	// ErrInvalidFirstNameLength is thrown on empty or too long first name.
	ErrInvalidFirstNameLength = "first name cannot be empty or exceed 50 characters"
	// ErrInvalidLastNameLength is thrown on empty or too long last name.
	ErrInvalidLastNameLength = "last name cannot be empty or exceed 50 characters"
	// ErrInvalidEmailFormat is thrown if email is not in 'local@domain' form.
	ErrInvalidEmailFormat = "invalid email format"

	// ErrIncorrectFee is thrown if attached payment differs from the fee.
	ErrIncorrectFee = "incorrect subscription fee"
	// ErrInvalidFee is thrown on attempt to set a fee rejected by the
	// contract fee policy.
	ErrInvalidFee = "invalid subscription fee"

	// ErrAlreadySubscribed is thrown on subscribe by an active subscriber.
	ErrAlreadySubscribed = "already subscribed"
	// ErrNotSubscribedUnsubscribe is thrown on unsubscribe by an account
	// without active subscription.
	ErrNotSubscribedUnsubscribe = "you must have a subscription to unsubscribe"
	// ErrNotSubscribedPayment is thrown on payment by an account without
	// active subscription.
	ErrNotSubscribedPayment = "you must have a subscription to make a payment"
	// ErrPaymentNotDue is thrown on payment made before the due date.
	ErrPaymentNotDue = "payment not due yet"

	// ErrNotOwner is thrown when administrative method is called without
	// owner's witness.
	ErrNotOwner = "only the owner can call this function"
	// ErrDestroyed is thrown by every method after the contract has been
	// self-destructed.
	ErrDestroyed = "contract is destroyed"

	// ErrGASOnly is logged when contract receives anything but GAS.
	ErrGASOnly = "only GAS can be accepted as payment"
	// ErrUnknownPayment is logged when payment data doesn't name a known
	// action.
	ErrUnknownPayment = "payment data must specify subscription action"
)
