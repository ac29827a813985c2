/*
Package subscription implements Subscription contract.

Subscription contract keeps a registry of subscribers with their contact
details and the time of the next due payment, collects GAS paid for
subscriptions and lets the contract owner change the fee and withdraw
collected funds.

Subscribing and paying are NEP-17 GAS transfers to the contract address with
transfer data naming the action:

	["subscribe", email, firstName, lastName]
	["makePayment"]

The attached amount must be equal to the current subscription fee. A paid
subscription is due in 60 seconds of block time, the next payment is accepted
starting from the due time. Transfers without data, with unknown action or of
tokens other than GAS are rejected.

The owner is fixed on deployment. Deployment data is a struct of owner
account, initial fee and a flag forbidding zero fee. After the owner calls
SelfDestructContract, remaining funds are transferred to the owner and every
method except IsDestroyed and Version fails.

# Contract notifications

Subscribed notification. This notification is produced when an account
subscribes, including re-subscription after Unsubscribe.

	Subscribed:
	  - name: account
	    type: Hash160
	  - name: subscriptionDue
	    type: Integer
	  - name: email
	    type: String
	  - name: firstName
	    type: String
	  - name: lastName
	    type: String

Unsubscribed notification. This notification is produced when an account
cancels its subscription.

	Unsubscribed:
	  - name: account
	    type: Hash160

Payment notification. This notification is produced when an active
subscriber pays the next period.

	Payment:
	  - name: account
	    type: Hash160
	  - name: amount
	    type: Integer
	  - name: subscriptionDue
	    type: Integer
*/
package subscription

/*
Contract storage model.

# Summary
Key-value storage format:
  - 'w' -> interop.Hash160
    contract owner
  - 'f' -> int
    subscription fee
  - 'b' -> int
    GAS collected since the last withdrawal
  - 'z' -> bool
    set if zero fee is forbidden
  - 'd' -> bool
    set after self-destruction
  - 's' + interop.Hash160 -> std.Serialize(Subscriber)
    registry record of the account
  - 'i' + interop.Hash160 -> int
    position of the account in the subscription order
  - 'o' + decimal(int) -> interop.Hash160
    account at the position of the subscription order
  - 'n' -> int
    number of accounts that have ever subscribed

# Registry
Records are never removed: Unsubscribe only clears IsSubscribed flag, and
re-subscription overwrites the record in place keeping the original position.
*/
